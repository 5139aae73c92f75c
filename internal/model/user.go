package model

import "time"

// Role names stored in users.role.
const (
    RoleUser  = "USER"
    RolePro   = "PRO"
    RoleAdmin = "ADMIN"
)

// User represents an application user record as stored in the
// `users` table. Each field corresponds to a column in the
// database. Handlers define separate response types with JSON tags.
//
// Fields:
//  ID              – primary key identifier of the user.
//  Email           – unique email address.
//  PasswordHash    – bcrypt hashed password.
//  FirstName       – given name, printed on certificates.
//  LastName        – family name, printed on certificates.
//  Phone           – optional contact number.
//  Role            – USER, PRO or ADMIN.
//  MemberCode      – certified passport id (RR-YY-XXXX); set once at registration.
//  ConceptionLevel – highest workshop tier completed (0–4); admin-managed.
//  CompanyName     – institutional identity for PRO accounts (nullable).
//  Siret           – company registration number (nullable).
//  IsEmployee      – beneficiary of a business (CE) arrangement.
//  IsActive        – whether the account is active.
//  CreatedAt       – timestamp of creation.
//  UpdatedAt       – timestamp of last update.
type User struct {
    ID              uint64    // users.id
    Email           string    // users.email
    PasswordHash    string    // users.password_hash
    FirstName       string    // users.first_name
    LastName        string    // users.last_name
    Phone           string    // users.phone
    Role            string    // users.role
    MemberCode      string    // users.member_code
    ConceptionLevel int       // users.conception_level
    CompanyName     *string   // users.company_name (nullable)
    Siret           *string   // users.siret (nullable)
    IsEmployee      bool      // users.is_employee
    IsActive        bool      // users.is_active
    CreatedAt       time.Time // users.created_at
    UpdatedAt       time.Time // users.updated_at
}

// FullName joins first and last name for display.
func (u User) FullName() string {
    if u.LastName == "" {
        return u.FirstName
    }
    return u.FirstName + " " + u.LastName
}

// RefreshToken models an entry in the `refresh_tokens` table. Only the
// SHA‑256 hash of the token handed to the client is stored.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
