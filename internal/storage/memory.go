package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erancha/RENTracker-sub000/pkg/json"
)

// Memory is an in-process Store. It backs tests and local development,
// where several gateway "instances" share one store inside a single test
// binary.
type Memory struct {
	mu         sync.RWMutex
	users      map[string]*User
	apartments map[string]*Apartment
	documents  map[string]*Document
	activities map[string]*Activity
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:      make(map[string]*User),
		apartments: make(map[string]*Apartment),
		documents:  make(map[string]*Document),
		activities: make(map[string]*Activity),
	}
}

func (m *Memory) EnsureUser(_ context.Context, id, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; ok {
		return nil
	}
	m.users[id] = &User{ID: id, DisplayName: displayName, CreatedAt: time.Now()}
	return nil
}

func (m *Memory) Create(_ context.Context, res Resource, userID string, data []byte) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch res {
	case ResourceApartment:
		var a Apartment
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("decode apartment: %w", err)
		}
		a.ID = uuid.NewString()
		a.LandlordID = userID
		a.CreatedAt = time.Now()
		a.UpdatedAt = a.CreatedAt
		m.apartments[a.ID] = &a
		return &Result{Payload: &a, Targets: m.apartmentMembers(&a)}, nil
	case ResourceDocument:
		var d Document
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		apt, ok := m.apartments[d.ApartmentID]
		if !ok {
			return nil, ErrNotFound
		}
		d.ID = uuid.NewString()
		d.CreatedAt = time.Now()
		d.UpdatedAt = d.CreatedAt
		m.documents[d.ID] = &d
		return &Result{Payload: &d, Targets: m.apartmentMembers(apt)}, nil
	case ResourceActivity:
		var act Activity
		if err := json.Unmarshal(data, &act); err != nil {
			return nil, fmt.Errorf("decode activity: %w", err)
		}
		apt, ok := m.apartments[act.ApartmentID]
		if !ok {
			return nil, ErrNotFound
		}
		act.ID = uuid.NewString()
		act.CreatedAt = time.Now()
		m.activities[act.ID] = &act
		return &Result{Payload: &act, Targets: m.apartmentMembers(apt)}, nil
	}
	return nil, fmt.Errorf("unknown resource %q", res)
}

func (m *Memory) Read(_ context.Context, res Resource, userID string, params ReadParams) (*Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch res {
	case ResourceApartment:
		if params.ID != "" {
			a, ok := m.apartments[params.ID]
			if !ok {
				return nil, ErrNotFound
			}
			return &Result{Payload: a, Targets: []string{userID}}, nil
		}
		list := make([]*Apartment, 0)
		for _, a := range m.apartments {
			if m.isMember(a, userID) {
				list = append(list, a)
			}
		}
		return &Result{Payload: list, Targets: []string{userID}}, nil
	case ResourceDocument:
		if params.ID != "" {
			d, ok := m.documents[params.ID]
			if !ok {
				return nil, ErrNotFound
			}
			return &Result{Payload: d, Targets: []string{userID}}, nil
		}
		list := make([]*Document, 0)
		for _, d := range m.documents {
			if params.ApartmentID != "" && d.ApartmentID != params.ApartmentID {
				continue
			}
			if apt, ok := m.apartments[d.ApartmentID]; ok && m.isMember(apt, userID) {
				list = append(list, d)
			}
		}
		return &Result{Payload: list, Targets: []string{userID}}, nil
	case ResourceActivity:
		list := make([]*Activity, 0)
		for _, act := range m.activities {
			if params.ApartmentID != "" && act.ApartmentID != params.ApartmentID {
				continue
			}
			if apt, ok := m.apartments[act.ApartmentID]; ok && m.isMember(apt, userID) {
				list = append(list, act)
			}
		}
		return &Result{Payload: list, Targets: []string{userID}}, nil
	}
	return nil, fmt.Errorf("unknown resource %q", res)
}

func (m *Memory) Update(_ context.Context, res Resource, userID string, data []byte) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch res {
	case ResourceApartment:
		var a Apartment
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("decode apartment: %w", err)
		}
		existing, ok := m.apartments[a.ID]
		if !ok {
			return nil, ErrNotFound
		}
		if a.Address != "" {
			existing.Address = a.Address
		}
		if a.Rooms != 0 {
			existing.Rooms = a.Rooms
		}
		if a.Rent != 0 {
			existing.Rent = a.Rent
		}
		if a.TenantIDs != nil {
			existing.TenantIDs = a.TenantIDs
		}
		existing.UpdatedAt = time.Now()
		return &Result{Payload: existing, Targets: m.apartmentMembers(existing)}, nil
	case ResourceDocument:
		var d Document
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		existing, ok := m.documents[d.ID]
		if !ok {
			return nil, ErrNotFound
		}
		if d.Name != "" {
			existing.Name = d.Name
		}
		if d.Status != "" {
			existing.Status = d.Status
		}
		existing.UpdatedAt = time.Now()
		targets := []string{userID}
		if apt, ok := m.apartments[existing.ApartmentID]; ok {
			targets = m.apartmentMembers(apt)
		}
		return &Result{Payload: existing, Targets: targets}, nil
	case ResourceActivity:
		return nil, fmt.Errorf("activity records are immutable")
	}
	return nil, fmt.Errorf("unknown resource %q", res)
}

func (m *Memory) Delete(_ context.Context, res Resource, userID, id string) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch res {
	case ResourceApartment:
		a, ok := m.apartments[id]
		if !ok {
			return nil, ErrNotFound
		}
		targets := m.apartmentMembers(a)
		delete(m.apartments, id)
		return &Result{Payload: a, Targets: targets}, nil
	case ResourceDocument:
		d, ok := m.documents[id]
		if !ok {
			return nil, ErrNotFound
		}
		targets := []string{userID}
		if apt, ok := m.apartments[d.ApartmentID]; ok {
			targets = m.apartmentMembers(apt)
		}
		delete(m.documents, id)
		return &Result{Payload: d, Targets: targets}, nil
	case ResourceActivity:
		act, ok := m.activities[id]
		if !ok {
			return nil, ErrNotFound
		}
		targets := []string{userID}
		if apt, ok := m.apartments[act.ApartmentID]; ok {
			targets = m.apartmentMembers(apt)
		}
		delete(m.activities, id)
		return &Result{Payload: act, Targets: targets}, nil
	}
	return nil, fmt.Errorf("unknown resource %q", res)
}

// apartmentMembers returns the landlord plus all tenants of an apartment.
func (m *Memory) apartmentMembers(a *Apartment) []string {
	members := make([]string, 0, len(a.TenantIDs)+1)
	members = append(members, a.LandlordID)
	members = append(members, a.TenantIDs...)
	return members
}

func (m *Memory) isMember(a *Apartment, userID string) bool {
	if a.LandlordID == userID {
		return true
	}
	for _, t := range a.TenantIDs {
		if t == userID {
			return true
		}
	}
	return false
}
