package schema

import (
	"context"
	"testing"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/autogql/autogql/pubsub"
	"github.com/autogql/autogql/store"
	"github.com/autogql/autogql/store/memory"
)

func drainEvent(t *testing.T, events <-chan any) store.Record {
	t.Helper()
	select {
	case msg := <-events:
		rec, ok := msg.(store.Record)
		if !ok {
			t.Fatalf("unexpected event payload %T", msg)
		}
		return rec
	case <-time.After(time.Second):
		t.Fatalf("no event arrived")
		return nil
	}
}

func expectSilence(t *testing.T, events <-chan any) {
	t.Helper()
	select {
	case msg := <-events:
		t.Fatalf("unexpected event: %#v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAddPublishesAddedEvent(t *testing.T) {
	broker := pubsub.NewInMemoryBroker()
	s := buildSchema(t, Options{Store: memory.New(blogSet()), Subscriptions: true, PubSub: broker})

	events, stop, err := broker.Subscribe(context.Background(), "USER_ADDED")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer stop()

	execute(t, s, `mutation { addUser(User: {id: "u1", name: "ada"}) { id } }`)

	payload := drainEvent(t, events)
	rec, ok := payload["userAdded"].(store.Record)
	if !ok {
		t.Fatalf("expected userAdded record, got %#v", payload)
	}
	if rec["name"] != "ada" {
		t.Fatalf("unexpected created record: %#v", rec)
	}
	expectSilence(t, events)
}

func TestAddWithoutSubscriptionsPublishesNothing(t *testing.T) {
	// The default broker would carry events if the mutation published to it.
	events, stop, err := pubsub.Default().Subscribe(context.Background(), "USER_ADDED")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer stop()

	s := buildSchema(t, Options{Store: memory.New(blogSet())})
	execute(t, s, `mutation { addUser(User: {id: "u1", name: "ada"}) { id } }`)
	expectSilence(t, events)
}

func TestUpdateReconcilesCollections(t *testing.T) {
	broker := pubsub.NewInMemoryBroker()
	st := memory.New(blogSet())
	s := buildSchema(t, Options{Store: st, Subscriptions: true, PubSub: broker})

	execute(t, s, `mutation {
		addUser(User: {id: "u1", name: "ada", posts: [
			{id: "p1", title: "keep"},
			{id: "p2", title: "drop"}
		]}) { id }
	}`)

	events, stop, err := broker.Subscribe(context.Background(), "USER_UPDATED")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer stop()

	data := execute(t, s, `mutation {
		updateUser(User: {id: "u1", name: "lovelace", posts: [
			{id: "p1", title: "kept"},
			{id: "p3", title: "new"}
		]}) { id name posts { id title } }
	}`)

	user, _ := data["updateUser"].(map[string]any)
	if user == nil || user["name"] != "lovelace" {
		t.Fatalf("unexpected update result: %#v", data)
	}
	posts, _ := user["posts"].([]any)
	if len(posts) != 2 {
		t.Fatalf("expected replace-missing to leave 2 posts, got %#v", user["posts"])
	}
	ids := map[any]bool{}
	for _, p := range posts {
		ids[p.(map[string]any)["id"]] = true
	}
	if !ids["p1"] || !ids["p3"] || ids["p2"] {
		t.Fatalf("unexpected reconciled posts: %#v", posts)
	}

	payload := drainEvent(t, events)
	snapshot, ok := payload["userUpdated"].(store.Record)
	if !ok || snapshot["name"] != "lovelace" {
		t.Fatalf("unexpected update event: %#v", payload)
	}
}

func TestUpdateRequiresPrimaryKey(t *testing.T) {
	s := buildSchema(t, Options{Store: memory.New(blogSet())})
	result := graphql.Do(graphql.Params{
		Schema:        s,
		RequestString: `mutation { updateUser(User: {name: "ada"}) { id } }`,
		Context:       context.Background(),
	})
	if len(result.Errors) == 0 {
		t.Fatalf("expected error for update without primary key")
	}
}

func TestUpdateUnknownRecordFails(t *testing.T) {
	s := buildSchema(t, Options{Store: memory.New(blogSet())})
	result := graphql.Do(graphql.Params{
		Schema:        s,
		RequestString: `mutation { updateUser(User: {id: "nope", name: "ada"}) { id } }`,
		Context:       context.Background(),
	})
	if len(result.Errors) == 0 {
		t.Fatalf("expected error for unknown record")
	}
}

func TestDeleteCountAndEvent(t *testing.T) {
	broker := pubsub.NewInMemoryBroker()
	s := buildSchema(t, Options{Store: memory.New(blogSet()), Subscriptions: true, PubSub: broker})

	events, stop, err := broker.Subscribe(context.Background(), "USER_DELETED")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer stop()

	data := execute(t, s, `mutation { deleteUser(id: "ghost") }`)
	if data["deleteUser"] != 0 {
		t.Fatalf("expected count 0 for missing record, got %#v", data["deleteUser"])
	}
	expectSilence(t, events)

	execute(t, s, `mutation { addUser(User: {id: "u1", name: "ada"}) { id } }`)

	data = execute(t, s, `mutation { deleteUser(id: "u1") }`)
	if data["deleteUser"] != 1 {
		t.Fatalf("expected count 1, got %#v", data["deleteUser"])
	}
	payload := drainEvent(t, events)
	if payload["userDeleted"] != "u1" {
		t.Fatalf("unexpected delete event: %#v", payload)
	}
}
