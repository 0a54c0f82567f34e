package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gunaso/grievance-service/internal/domain"
)

// UserRepository defines persistence access for identities and their profiles.
type UserRepository interface {
	// Create inserts the identity and its citizen profile atomically.
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateProfile(ctx context.Context, profile *domain.Profile) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const selectUser = `
        SELECT u.id, u.username, u.email, u.password_hash, u.first_name, u.last_name, u.is_superuser,
               u.created_at, u.updated_at,
               p.user_id, p.role, p.phone_number, p.id_document, p.updated_at,
               COALESCE((SELECT array_agg(pm.ministry_id::text) FROM profile_ministries pm WHERE pm.user_id = u.id), '{}'),
               COALESCE((SELECT array_agg(pd.department_id::text) FROM profile_departments pd WHERE pd.user_id = u.id), '{}')
        FROM users u
        LEFT JOIN user_profiles p ON p.user_id = u.id`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insertUser = `
            INSERT INTO users (username, email, password_hash, first_name, last_name, is_superuser)
            VALUES ($1,$2,$3,$4,$5,$6)
            RETURNING id, created_at, updated_at`
		if err := tx.QueryRow(ctx, insertUser,
			user.Username,
			user.Email,
			user.PasswordHash,
			user.FirstName,
			user.LastName,
			user.IsSuperuser,
		).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return err
		}

		profile := user.Profile
		if profile == nil {
			profile = &domain.Profile{Role: domain.RoleCitizen}
		}
		profile.UserID = user.ID

		const insertProfile = `
            INSERT INTO user_profiles (user_id, role, phone_number, id_document)
            VALUES ($1,$2,$3,$4)
            RETURNING updated_at`
		if err := tx.QueryRow(ctx, insertProfile,
			profile.UserID,
			profile.Role,
			profile.PhoneNumber,
			profile.IDDocument,
		).Scan(&profile.UpdatedAt); err != nil {
			return err
		}
		if err := replaceProfileScope(ctx, tx, profile); err != nil {
			return err
		}
		user.Profile = profile
		return nil
	})
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.fetchSingle(ctx, selectUser+` WHERE u.id=$1`, id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.fetchSingle(ctx, selectUser+` WHERE u.username=$1`, username)
}

// UpdateProfile overwrites role, contact fields and the full scope sets.
func (r *userRepository) UpdateProfile(ctx context.Context, profile *domain.Profile) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
            UPDATE user_profiles SET role=$1, phone_number=$2, id_document=$3, updated_at=NOW()
            WHERE user_id=$4
            RETURNING updated_at`
		if err := tx.QueryRow(ctx, query,
			profile.Role,
			profile.PhoneNumber,
			profile.IDDocument,
			profile.UserID,
		).Scan(&profile.UpdatedAt); err != nil {
			return err
		}
		return replaceProfileScope(ctx, tx, profile)
	})
}

func replaceProfileScope(ctx context.Context, tx pgx.Tx, profile *domain.Profile) error {
	if _, err := tx.Exec(ctx, `DELETE FROM profile_ministries WHERE user_id=$1`, profile.UserID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM profile_departments WHERE user_id=$1`, profile.UserID); err != nil {
		return err
	}
	if err := insertLinks(ctx, tx,
		`INSERT INTO profile_ministries (user_id, ministry_id) VALUES ($1,$2)`,
		profile.UserID, profile.MinistryIDs); err != nil {
		return err
	}
	return insertLinks(ctx, tx,
		`INSERT INTO profile_departments (user_id, department_id) VALUES ($1,$2)`,
		profile.UserID, profile.DepartmentIDs)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var (
		user          domain.User
		profileUserID *string
		role          *string
		phone         *string
		idDocument    *string
		profileAt     *time.Time
		ministryIDs   []string
		departmentIDs []string
	)
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.IsSuperuser,
		&user.CreatedAt,
		&user.UpdatedAt,
		&profileUserID,
		&role,
		&phone,
		&idDocument,
		&profileAt,
		&ministryIDs,
		&departmentIDs,
	); err != nil {
		return nil, err
	}
	if profileUserID != nil {
		user.Profile = &domain.Profile{
			UserID:        *profileUserID,
			Role:          domain.Role(*role),
			MinistryIDs:   ministryIDs,
			DepartmentIDs: departmentIDs,
			PhoneNumber:   phone,
			IDDocument:    idDocument,
		}
		if profileAt != nil {
			user.Profile.UpdatedAt = *profileAt
		}
	}
	return &user, nil
}
