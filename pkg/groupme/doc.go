// Package groupme implements a client for the GroupMe v3 REST API.
//
// A Session wraps authentication and the HTTP transport; resource managers
// (Groups, Messages, Memberships, Chats, Blocks, Bots, CurrentUser) translate
// method calls into API requests and decode the responses into typed
// resources. Server fields without a typed counterpart are preserved in a
// Fields bag on each resource.
//
// Adding members to a group is asynchronous on the backend: Memberships.Add
// submits a batch and returns a MembershipRequest, which polls a results
// endpoint and partitions the batch into confirmed members and failures. See
// MembershipRequest for the full lifecycle.
//
// No external GroupMe library is used — the package communicates with the
// API via raw net/http + encoding/json.
package groupme
