package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/rhum-atelier/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NewUser carries the registration fields.  PasswordHash must already be a
// bcrypt hash.
type NewUser struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	Role         string
	MemberCode   string
	CompanyName  *string
	Siret        *string
	IsEmployee   bool
}

const userColumns = "id,email,password_hash,first_name,last_name,phone,role,member_code,conception_level,company_name,siret,is_employee,is_active,created_at,updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		u       model.User
		company sql.NullString
		siret   sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone,
		&u.Role, &u.MemberCode, &u.ConceptionLevel, &company, &siret, &u.IsEmployee,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	if err != nil {
		return u, err
	}
	if company.Valid {
		u.CompanyName = &company.String
	}
	if siret.Valid {
		u.Siret = &siret.String
	}
	return u, nil
}

// Create inserts a user and returns its ID.  New accounts start at
// conception level 0.
func (r *UserRepo) Create(ctx context.Context, nu NewUser) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(nu.Email))
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, first_name, last_name, phone, role, member_code, company_name, siret, is_employee)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		email, nu.PasswordHash, nu.FirstName, nu.LastName, nu.Phone, nu.Role, nu.MemberCode,
		nu.CompanyName, nu.Siret, nu.IsEmployee)
	if err != nil {
		if isDuplicate(err) {
			if strings.Contains(err.Error(), "member_code") {
				return 0, ErrMemberCodeTaken
			}
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetByMemberCode resolves a passport code.  Inactive accounts are not
// returned.
func (r *UserRepo) GetByMemberCode(ctx context.Context, code string) (model.User, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE member_code=? AND is_active=1 LIMIT 1", code))
}

// SetConceptionLevel stores the highest tier a member has completed.
func (r *UserRepo) SetConceptionLevel(ctx context.Context, id uint64, level int) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET conception_level=? WHERE id=?", level, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// MySQL reports 0 affected rows when the value is unchanged.
	var one int
	err = r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
