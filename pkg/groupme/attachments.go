package groupme

import (
	"encoding/json"
	"fmt"
)

// Attachment is a piece of media or metadata attached to a message.
type Attachment interface {
	// AttachmentType returns the wire type tag ("image", "location", ...).
	AttachmentType() string
}

// ImageAttachment references an image hosted by the GroupMe image service.
type ImageAttachment struct {
	URL string `json:"url"`
}

// AttachmentType implements Attachment.
func (ImageAttachment) AttachmentType() string { return "image" }

// MarshalJSON adds the wire type tag.
func (a ImageAttachment) MarshalJSON() ([]byte, error) {
	type alias ImageAttachment
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: "image", alias: alias(a)})
}

// LocationAttachment is a point on the map. The API transmits coordinates
// as strings.
type LocationAttachment struct {
	Name string `json:"name"`
	Lat  string `json:"lat"`
	Lng  string `json:"lng"`
}

// AttachmentType implements Attachment.
func (LocationAttachment) AttachmentType() string { return "location" }

// MarshalJSON adds the wire type tag.
func (a LocationAttachment) MarshalJSON() ([]byte, error) {
	type alias LocationAttachment
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: "location", alias: alias(a)})
}

// SplitAttachment is a legacy bill-splitting attachment.
type SplitAttachment struct {
	Token string `json:"token"`
}

// AttachmentType implements Attachment.
func (SplitAttachment) AttachmentType() string { return "split" }

// MarshalJSON adds the wire type tag.
func (a SplitAttachment) MarshalJSON() ([]byte, error) {
	type alias SplitAttachment
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: "split", alias: alias(a)})
}

// EmojiAttachment maps emoji placeholders in the message text to charmap
// entries.
type EmojiAttachment struct {
	Placeholder string  `json:"placeholder"`
	Charmap     [][]int `json:"charmap"`
}

// AttachmentType implements Attachment.
func (EmojiAttachment) AttachmentType() string { return "emoji" }

// MarshalJSON adds the wire type tag.
func (a EmojiAttachment) MarshalJSON() ([]byte, error) {
	type alias EmojiAttachment
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: "emoji", alias: alias(a)})
}

// MentionsAttachment marks ranges of the message text that mention users.
// Loci holds (offset, length) pairs aligned with UserIDs.
type MentionsAttachment struct {
	UserIDs []string `json:"user_ids"`
	Loci    [][]int  `json:"loci"`
}

// AttachmentType implements Attachment.
func (MentionsAttachment) AttachmentType() string { return "mentions" }

// MarshalJSON adds the wire type tag.
func (a MentionsAttachment) MarshalJSON() ([]byte, error) {
	type alias MentionsAttachment
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: "mentions", alias: alias(a)})
}

// GenericAttachment carries an attachment whose type tag has no dedicated
// variant. Data holds every field except the tag itself.
type GenericAttachment struct {
	Type string
	Data map[string]json.RawMessage
}

// AttachmentType implements Attachment.
func (a GenericAttachment) AttachmentType() string { return a.Type }

// MarshalJSON reassembles the original wire form, tag included.
func (a GenericAttachment) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(a.Data)+1)
	for k, v := range a.Data {
		out[k] = v
	}
	tag, err := json.Marshal(a.Type)
	if err != nil {
		return nil, err
	}
	out["type"] = tag
	return json.Marshal(out)
}

// AttachmentRegistry maps attachment type tags to decoders. Build one with
// NewAttachmentRegistry and inject it wherever attachments are decoded;
// there is no process-wide registry. Unrecognized tags decode to
// GenericAttachment.
type AttachmentRegistry struct {
	decoders map[string]func(json.RawMessage) (Attachment, error)
}

// NewAttachmentRegistry returns a registry covering the known attachment
// types.
func NewAttachmentRegistry() *AttachmentRegistry {
	return &AttachmentRegistry{
		decoders: map[string]func(json.RawMessage) (Attachment, error){
			"image":    decodeAs[ImageAttachment],
			"location": decodeAs[LocationAttachment],
			"split":    decodeAs[SplitAttachment],
			"emoji":    decodeAs[EmojiAttachment],
			"mentions": decodeAs[MentionsAttachment],
		},
	}
}

func decodeAs[T Attachment](data json.RawMessage) (Attachment, error) {
	var a T
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("groupme: decode %s attachment: %w", a.AttachmentType(), err)
	}
	return a, nil
}

// Decode decodes a single raw attachment by its type tag.
func (r *AttachmentRegistry) Decode(data json.RawMessage) (Attachment, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("groupme: decode attachment type tag: %w", err)
	}

	if dec, ok := r.decoders[probe.Type]; ok {
		return dec(data)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("groupme: decode %q attachment: %w", probe.Type, err)
	}
	delete(fields, "type")
	return GenericAttachment{Type: probe.Type, Data: fields}, nil
}

// DecodeAll decodes a list of raw attachments in order.
func (r *AttachmentRegistry) DecodeAll(raw []json.RawMessage) ([]Attachment, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]Attachment, 0, len(raw))
	for _, data := range raw {
		a, err := r.Decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
