package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/erancha/RENTracker-sub000/pkg/json"
)

// Postgres is the production Store backed by the shared relational
// database. All instances read and write the same data; the realtime core
// never caches domain state in process.
type Postgres struct {
	db  *sql.DB
	log *zap.Logger
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB, log *zap.Logger) *Postgres {
	return &Postgres{db: db, log: log.With(zap.String("module", "storage"))}
}

// Open connects to Postgres and verifies connectivity.
func Open(host, port, user, password, dbname, sslmode string) (*sql.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func (p *Postgres) EnsureUser(ctx context.Context, id, displayName string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO users (user_id, display_name, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET display_name = EXCLUDED.display_name`,
		id, displayName)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

func (p *Postgres) Create(ctx context.Context, res Resource, userID string, data []byte) (*Result, error) {
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
		_, err := p.db.ExecContext(ctx, `
			INSERT INTO apartments (apartment_id, landlord_id, address, rooms, rent, tenant_ids, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
			a.ID, a.LandlordID, a.Address, a.Rooms, a.Rent, pq.Array(a.TenantIDs), a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert apartment: %w", err)
		}
		return &Result{Payload: &a, Targets: members(&a)}, nil
	case ResourceDocument:
		var d Document
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		apt, err := p.apartment(ctx, d.ApartmentID)
		if err != nil {
			return nil, err
		}
		d.ID = uuid.NewString()
		d.CreatedAt = time.Now()
		d.UpdatedAt = d.CreatedAt
		_, err = p.db.ExecContext(ctx, `
			INSERT INTO documents (document_id, apartment_id, tenant_id, name, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)`,
			d.ID, d.ApartmentID, d.TenantID, d.Name, d.Status, d.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert document: %w", err)
		}
		return &Result{Payload: &d, Targets: members(apt)}, nil
	case ResourceActivity:
		var act Activity
		if err := json.Unmarshal(data, &act); err != nil {
			return nil, fmt.Errorf("decode activity: %w", err)
		}
		apt, err := p.apartment(ctx, act.ApartmentID)
		if err != nil {
			return nil, err
		}
		act.ID = uuid.NewString()
		act.CreatedAt = time.Now()
		_, err = p.db.ExecContext(ctx, `
			INSERT INTO activities (activity_id, apartment_id, description, amount, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			act.ID, act.ApartmentID, act.Description, act.Amount, act.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert activity: %w", err)
		}
		return &Result{Payload: &act, Targets: members(apt)}, nil
	}
	return nil, fmt.Errorf("unknown resource %q", res)
}

func (p *Postgres) Read(ctx context.Context, res Resource, userID string, params ReadParams) (*Result, error) {
	switch res {
	case ResourceApartment:
		if params.ID != "" {
			a, err := p.apartment(ctx, params.ID)
			if err != nil {
				return nil, err
			}
			return &Result{Payload: a, Targets: []string{userID}}, nil
		}
		rows, err := p.db.QueryContext(ctx, `
			SELECT apartment_id, landlord_id, address, rooms, rent, tenant_ids, created_at, updated_at
			FROM apartments
			WHERE landlord_id = $1 OR $1 = ANY(tenant_ids)
			ORDER BY created_at`, userID)
		if err != nil {
			return nil, fmt.Errorf("list apartments: %w", err)
		}
		defer rows.Close()
		list := make([]*Apartment, 0)
		for rows.Next() {
			a, err := scanApartment(rows)
			if err != nil {
				return nil, err
			}
			list = append(list, a)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("list apartments: %w", err)
		}
		return &Result{Payload: list, Targets: []string{userID}}, nil
	case ResourceDocument:
		if params.ID != "" {
			row := p.db.QueryRowContext(ctx, `
				SELECT document_id, apartment_id, tenant_id, name, status, created_at, updated_at
				FROM documents WHERE document_id = $1`, params.ID)
			var d Document
			if err := row.Scan(&d.ID, &d.ApartmentID, &d.TenantID, &d.Name, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
				if err == sql.ErrNoRows {
					return nil, ErrNotFound
				}
				return nil, fmt.Errorf("read document: %w", err)
			}
			return &Result{Payload: &d, Targets: []string{userID}}, nil
		}
		rows, err := p.db.QueryContext(ctx, `
			SELECT d.document_id, d.apartment_id, d.tenant_id, d.name, d.status, d.created_at, d.updated_at
			FROM documents d
			JOIN apartments a ON a.apartment_id = d.apartment_id
			WHERE (a.landlord_id = $1 OR $1 = ANY(a.tenant_ids))
			  AND ($2 = '' OR d.apartment_id = $2)
			ORDER BY d.created_at`, userID, params.ApartmentID)
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		defer rows.Close()
		list := make([]*Document, 0)
		for rows.Next() {
			var d Document
			if err := rows.Scan(&d.ID, &d.ApartmentID, &d.TenantID, &d.Name, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
				return nil, fmt.Errorf("scan document: %w", err)
			}
			list = append(list, &d)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		return &Result{Payload: list, Targets: []string{userID}}, nil
	case ResourceActivity:
		rows, err := p.db.QueryContext(ctx, `
			SELECT act.activity_id, act.apartment_id, act.description, act.amount, act.created_at
			FROM activities act
			JOIN apartments a ON a.apartment_id = act.apartment_id
			WHERE (a.landlord_id = $1 OR $1 = ANY(a.tenant_ids))
			  AND ($2 = '' OR act.apartment_id = $2)
			ORDER BY act.created_at`, userID, params.ApartmentID)
		if err != nil {
			return nil, fmt.Errorf("list activities: %w", err)
		}
		defer rows.Close()
		list := make([]*Activity, 0)
		for rows.Next() {
			var act Activity
			if err := rows.Scan(&act.ID, &act.ApartmentID, &act.Description, &act.Amount, &act.CreatedAt); err != nil {
				return nil, fmt.Errorf("scan activity: %w", err)
			}
			list = append(list, &act)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("list activities: %w", err)
		}
		return &Result{Payload: list, Targets: []string{userID}}, nil
	}
	return nil, fmt.Errorf("unknown resource %q", res)
}

func (p *Postgres) Update(ctx context.Context, res Resource, userID string, data []byte) (*Result, error) {
	switch res {
	case ResourceApartment:
		var a Apartment
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("decode apartment: %w", err)
		}
		row := p.db.QueryRowContext(ctx, `
			UPDATE apartments
			SET address    = COALESCE(NULLIF($2, ''), address),
			    rooms      = CASE WHEN $3 = 0 THEN rooms ELSE $3 END,
			    rent       = CASE WHEN $4 = 0 THEN rent ELSE $4 END,
			    tenant_ids = COALESCE($5, tenant_ids),
			    updated_at = NOW()
			WHERE apartment_id = $1
			RETURNING apartment_id, landlord_id, address, rooms, rent, tenant_ids, created_at, updated_at`,
			a.ID, a.Address, a.Rooms, a.Rent, tenantArray(a.TenantIDs))
		updated, err := scanApartment(row)
		if err != nil {
			return nil, err
		}
		return &Result{Payload: updated, Targets: members(updated)}, nil
	case ResourceDocument:
		var d Document
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		row := p.db.QueryRowContext(ctx, `
			UPDATE documents
			SET name       = COALESCE(NULLIF($2, ''), name),
			    status     = COALESCE(NULLIF($3, ''), status),
			    updated_at = NOW()
			WHERE document_id = $1
			RETURNING document_id, apartment_id, tenant_id, name, status, created_at, updated_at`,
			d.ID, d.Name, d.Status)
		var updated Document
		if err := row.Scan(&updated.ID, &updated.ApartmentID, &updated.TenantID, &updated.Name, &updated.Status, &updated.CreatedAt, &updated.UpdatedAt); err != nil {
			if err == sql.ErrNoRows {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("update document: %w", err)
		}
		apt, err := p.apartment(ctx, updated.ApartmentID)
		if err != nil {
			return nil, err
		}
		return &Result{Payload: &updated, Targets: members(apt)}, nil
	case ResourceActivity:
		return nil, fmt.Errorf("activity records are immutable")
	}
	return nil, fmt.Errorf("unknown resource %q", res)
}

func (p *Postgres) Delete(ctx context.Context, res Resource, userID, id string) (*Result, error) {
	switch res {
	case ResourceApartment:
		row := p.db.QueryRowContext(ctx, `
			DELETE FROM apartments WHERE apartment_id = $1
			RETURNING apartment_id, landlord_id, address, rooms, rent, tenant_ids, created_at, updated_at`, id)
		a, err := scanApartment(row)
		if err != nil {
			return nil, err
		}
		return &Result{Payload: a, Targets: members(a)}, nil
	case ResourceDocument:
		row := p.db.QueryRowContext(ctx, `
			DELETE FROM documents WHERE document_id = $1
			RETURNING document_id, apartment_id, tenant_id, name, status, created_at, updated_at`, id)
		var d Document
		if err := row.Scan(&d.ID, &d.ApartmentID, &d.TenantID, &d.Name, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
			if err == sql.ErrNoRows {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("delete document: %w", err)
		}
		targets := []string{userID}
		if apt, err := p.apartment(ctx, d.ApartmentID); err == nil {
			targets = members(apt)
		}
		return &Result{Payload: &d, Targets: targets}, nil
	case ResourceActivity:
		row := p.db.QueryRowContext(ctx, `
			DELETE FROM activities WHERE activity_id = $1
			RETURNING activity_id, apartment_id, description, amount, created_at`, id)
		var act Activity
		if err := row.Scan(&act.ID, &act.ApartmentID, &act.Description, &act.Amount, &act.CreatedAt); err != nil {
			if err == sql.ErrNoRows {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("delete activity: %w", err)
		}
		targets := []string{userID}
		if apt, err := p.apartment(ctx, act.ApartmentID); err == nil {
			targets = members(apt)
		}
		return &Result{Payload: &act, Targets: targets}, nil
	}
	return nil, fmt.Errorf("unknown resource %q", res)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApartment(row rowScanner) (*Apartment, error) {
	var a Apartment
	var tenants pq.StringArray
	if err := row.Scan(&a.ID, &a.LandlordID, &a.Address, &a.Rooms, &a.Rent, &tenants, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan apartment: %w", err)
	}
	a.TenantIDs = tenants
	return &a, nil
}

func (p *Postgres) apartment(ctx context.Context, id string) (*Apartment, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT apartment_id, landlord_id, address, rooms, rent, tenant_ids, created_at, updated_at
		FROM apartments WHERE apartment_id = $1`, id)
	return scanApartment(row)
}

func tenantArray(ids []string) interface{} {
	if ids == nil {
		return nil
	}
	return pq.Array(ids)
}

func members(a *Apartment) []string {
	m := make([]string, 0, len(a.TenantIDs)+1)
	m = append(m, a.LandlordID)
	m = append(m, a.TenantIDs...)
	return m
}
