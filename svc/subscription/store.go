package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrymomot/billingkit/pkg/storage"
)

// Store is a typed façade over the persistence adapter for subscription
// records. Records travel through the adapter as plain documents; the
// conversion goes through JSON so the adapter representation matches the
// wire representation exactly.
type Store struct {
	adapter storage.Adapter
}

// NewStore wraps a persistence adapter. Panics on a nil adapter.
func NewStore(adapter storage.Adapter) *Store {
	if adapter == nil {
		panic("subscription: storage adapter is required")
	}
	return &Store{adapter: adapter}
}

func recordToDoc(rec *Record) (map[string]any, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("subscription: encode record: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("subscription: encode record: %w", err)
	}
	return doc, nil
}

func docToRecord(doc map[string]any) (*Record, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("subscription: decode record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("subscription: decode record: %w", err)
	}
	return &rec, nil
}

// FindByID loads a record by its local identifier.
func (s *Store) FindByID(ctx context.Context, id string) (*Record, error) {
	doc, err := s.adapter.FindOne(ctx, ModelSubscription, storage.Eq("id", id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, E(CodeSubscriptionNotFound, "subscription not found").
				WithMeta("subscriptionId", id)
		}
		return nil, err
	}
	return docToRecord(doc)
}

// FindByProviderSubscriptionID loads the record linked to a provider-side
// subscription. Webhook reconciliation keys on this lookup.
func (s *Store) FindByProviderSubscriptionID(ctx context.Context, providerSubID string) (*Record, error) {
	doc, err := s.adapter.FindOne(ctx, ModelSubscription, storage.Eq("razorpaySubscriptionId", providerSubID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, E(CodeSubscriptionNotFound, "subscription not found").
				WithMeta("razorpaySubscriptionId", providerSubID)
		}
		return nil, err
	}
	return docToRecord(doc)
}

// ListByReference returns every record, live or not, owned by a reference.
func (s *Store) ListByReference(ctx context.Context, referenceID string) ([]*Record, error) {
	docs, err := s.adapter.FindMany(ctx, ModelSubscription, storage.Eq("referenceId", referenceID))
	if err != nil {
		return nil, err
	}
	out := make([]*Record, 0, len(docs))
	for _, doc := range docs {
		rec, err := docToRecord(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Create persists a new record and returns it with the adapter-assigned
// identifier filled in.
func (s *Store) Create(ctx context.Context, rec *Record) (*Record, error) {
	doc, err := recordToDoc(rec)
	if err != nil {
		return nil, err
	}
	created, err := s.adapter.Create(ctx, ModelSubscription, doc)
	if err != nil {
		return nil, err
	}
	return docToRecord(created)
}

// Save writes the full record back under its identifier. The merge
// semantics of Update are safe here because every mutable field of Record
// serializes unconditionally or is only ever set, never cleared.
func (s *Store) Save(ctx context.Context, rec *Record) (*Record, error) {
	doc, err := recordToDoc(rec)
	if err != nil {
		return nil, err
	}
	delete(doc, "id")
	updated, err := s.adapter.Update(ctx, ModelSubscription, []storage.Where{storage.Eq("id", rec.ID)}, doc)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, E(CodeSubscriptionNotFound, "subscription not found").
				WithMeta("subscriptionId", rec.ID)
		}
		return nil, err
	}
	return docToRecord(updated)
}

// UserStore is the read-mostly façade over the host application's user
// model. The billing core only ever reads users and annotates them with the
// provider customer identifier.
type UserStore struct {
	adapter storage.Adapter
}

// NewUserStore wraps a persistence adapter. Panics on a nil adapter.
func NewUserStore(adapter storage.Adapter) *UserStore {
	if adapter == nil {
		panic("subscription: storage adapter is required")
	}
	return &UserStore{adapter: adapter}
}

// FindByID loads a user by identifier.
func (u *UserStore) FindByID(ctx context.Context, id string) (*User, error) {
	doc, err := u.adapter.FindOne(ctx, ModelUser, storage.Eq("id", id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, E(CodeUserNotFound, "user not found").WithMeta("userId", id)
		}
		return nil, err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("subscription: decode user: %w", err)
	}
	var user User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("subscription: decode user: %w", err)
	}
	return &user, nil
}

// SetCustomerID annotates a user with its provider customer identifier.
func (u *UserStore) SetCustomerID(ctx context.Context, userID, customerID string) error {
	_, err := u.adapter.Update(ctx, ModelUser,
		[]storage.Where{storage.Eq("id", userID)},
		map[string]any{"razorpayCustomerId": customerID},
	)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return E(CodeUserNotFound, "user not found").WithMeta("userId", userID)
		}
		return err
	}
	return nil
}
