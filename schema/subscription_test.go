package schema

import (
	"context"
	"testing"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/autogql/autogql/pubsub"
	"github.com/autogql/autogql/store/memory"
)

func TestSubscriptionDeliversAddedRecord(t *testing.T) {
	broker := pubsub.NewInMemoryBroker().WithBuffer(4)
	s := buildSchema(t, Options{Store: memory.New(blogSet()), Subscriptions: true, PubSub: broker})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	results := graphql.Subscribe(graphql.Params{
		Schema:        s,
		RequestString: `subscription { userAdded { id name } }`,
		Context:       ctx,
	})

	// Let the subscriber register before mutating.
	time.Sleep(20 * time.Millisecond)
	execute(t, s, `mutation { addUser(User: {id: "u1", name: "ada"}) { id } }`)

	select {
	case result := <-results:
		if len(result.Errors) > 0 {
			t.Fatalf("subscription errors: %v", result.Errors)
		}
		data, _ := result.Data.(map[string]any)
		added, _ := data["userAdded"].(map[string]any)
		if added == nil || added["id"] != "u1" || added["name"] != "ada" {
			t.Fatalf("unexpected subscription payload: %#v", result.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no subscription result arrived")
	}
}

func TestSubscriptionDeletedCarriesKey(t *testing.T) {
	broker := pubsub.NewInMemoryBroker().WithBuffer(4)
	s := buildSchema(t, Options{Store: memory.New(blogSet()), Subscriptions: true, PubSub: broker})

	execute(t, s, `mutation { addUser(User: {id: "u1", name: "ada"}) { id } }`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	results := graphql.Subscribe(graphql.Params{
		Schema:        s,
		RequestString: `subscription { userDeleted }`,
		Context:       ctx,
	})

	time.Sleep(20 * time.Millisecond)
	execute(t, s, `mutation { deleteUser(id: "u1") }`)

	select {
	case result := <-results:
		if len(result.Errors) > 0 {
			t.Fatalf("subscription errors: %v", result.Errors)
		}
		data, _ := result.Data.(map[string]any)
		if data["userDeleted"] != "u1" {
			t.Fatalf("unexpected payload: %#v", result.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no subscription result arrived")
	}
}

func TestSubscriptionRootAbsentByDefault(t *testing.T) {
	s := buildSchema(t, Options{Store: memory.New(blogSet())})
	if s.SubscriptionType() != nil {
		t.Fatalf("subscription root must require opt-in")
	}
}

func TestTopics(t *testing.T) {
	topics := Topics(blogSet())
	if len(topics) != 9 {
		t.Fatalf("expected 9 topics, got %v", topics)
	}
	want := map[string]bool{
		"USER_ADDED": true, "POST_UPDATED": true, "COMMENT_DELETED": true,
	}
	for _, topic := range topics {
		delete(want, topic)
	}
	if len(want) != 0 {
		t.Fatalf("missing topics: %v (got %v)", want, topics)
	}
}
