package groupme

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChatsList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chats" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		writeEnvelope(t, w, []map[string]any{
			{
				"created_at":     1600000000,
				"updated_at":     1600000100,
				"messages_count": 3,
				"other_user":     map[string]any{"id": "u2", "name": "Ben"},
				"last_message": map[string]any{
					"id": "9", "conversation_id": "u1+u2", "text": "later",
				},
			},
		})
	}))
	defer srv.Close()

	chats, err := NewChats(NewSession("TOKEN", srv.URL)).List(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(chats) != 1 {
		t.Fatalf("len(chats) = %d, want 1", len(chats))
	}

	chat := chats[0]
	if chat.OtherUser.Name != "Ben" {
		t.Errorf("OtherUser.Name = %q", chat.OtherUser.Name)
	}
	if chat.Messages == nil {
		t.Fatal("scoped message manager not bound")
	}
	if chat.LastMessage == nil || chat.LastMessage.Text != "later" {
		t.Errorf("LastMessage = %v", chat.LastMessage)
	}
}

func TestDirectMessagesList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/direct_messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("other_user_id"); got != "u2" {
			t.Errorf("other_user_id = %q, want u2", got)
		}
		writeEnvelope(t, w, map[string]any{
			"count": 1,
			"direct_messages": []map[string]any{
				{"id": "5", "conversation_id": "u1+u2", "text": "yo"},
			},
		})
	}))
	defer srv.Close()

	msgs, err := NewDirectMessages(NewSession("TOKEN", srv.URL), "u2").List(context.Background(), ListMessagesOptions{})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Text != "yo" {
		t.Errorf("msgs = %v", msgs)
	}
}

func TestDirectMessageCreateDerivesConversationID(t *testing.T) {
	// The create response omits conversation_id; the client reconstructs it
	// from the participants.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			DirectMessage struct {
				SourceGUID  string `json:"source_guid"`
				RecipientID string `json:"recipient_id"`
				Text        string `json:"text"`
			} `json:"direct_message"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("unmarshal request: %v", err)
		}
		if req.DirectMessage.RecipientID != "u2" {
			t.Errorf("recipient_id = %q, want u2", req.DirectMessage.RecipientID)
		}
		if req.DirectMessage.SourceGUID == "" {
			t.Error("source_guid is empty")
		}

		writeEnvelope(t, w, map[string]any{
			"direct_message": map[string]any{
				"id": "7", "recipient_id": "u2", "sender_id": "u1", "text": req.DirectMessage.Text,
			},
		})
	}))
	defer srv.Close()

	msg, err := NewDirectMessages(NewSession("TOKEN", srv.URL), "u2").Create(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if msg.ConversationID != "u1+u2" {
		t.Errorf("ConversationID = %q, want u1+u2", msg.ConversationID)
	}
}
