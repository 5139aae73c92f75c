package booking

import (
    "strings"

    "github.com/iliyamo/rhum-atelier/internal/model"
)

// Identity is the authenticated booker as seen by the reservation rules.
// It is built per request from the JWT subject and the users row and
// passed explicitly; nothing in this package reads ambient session state.
type Identity struct {
    UserID          uint64
    FirstName       string
    LastName        string
    Email           string
    Phone           string
    Role            string
    MemberCode      string
    IsEmployee      bool
    ConceptionLevel int
}

// IdentityFromUser copies the fields the rules need from a users row.
func IdentityFromUser(u model.User) Identity {
    return Identity{
        UserID:          u.ID,
        FirstName:       u.FirstName,
        LastName:        u.LastName,
        Email:           u.Email,
        Phone:           u.Phone,
        Role:            u.Role,
        MemberCode:      u.MemberCode,
        IsEmployee:      u.IsEmployee,
        ConceptionLevel: u.ConceptionLevel,
    }
}

// Institutional reports whether the booker books on behalf of a company.
func (id Identity) Institutional() bool { return IsInstitutional(id.Role, id.IsEmployee) }

// FullName joins first and last name.
func (id Identity) FullName() string { return joinName(id.FirstName, id.LastName) }

// MemberProfile is what the member directory returns for a passport code.
type MemberProfile struct {
    MemberCode      string `json:"member_code"`
    FirstName       string `json:"first_name"`
    LastName        string `json:"last_name"`
    ConceptionLevel int    `json:"conception_level"`
    Role            string `json:"role"`
    IsEmployee      bool   `json:"is_employee"`
}

// ProfileFromUser builds the directory view of a users row.
func ProfileFromUser(u model.User) MemberProfile {
    return MemberProfile{
        MemberCode:      u.MemberCode,
        FirstName:       u.FirstName,
        LastName:        u.LastName,
        ConceptionLevel: u.ConceptionLevel,
        Role:            u.Role,
        IsEmployee:      u.IsEmployee,
    }
}

// Institutional reports whether the member is a PRO or an employee.
func (p MemberProfile) Institutional() bool { return IsInstitutional(p.Role, p.IsEmployee) }

// Bind returns the identity a participant gets from this passport.  Names
// left empty are filled from the profile; a submitted name that differs
// from the holder's is ErrPassportMismatch.
func (p MemberProfile) Bind(first, last string) (string, string, error) {
    first, last = strings.TrimSpace(first), strings.TrimSpace(last)
    if first != "" && !strings.EqualFold(first, p.FirstName) {
        return "", "", ErrPassportMismatch
    }
    if last != "" && !strings.EqualFold(last, p.LastName) {
        return "", "", ErrPassportMismatch
    }
    return p.FirstName, p.LastName, nil
}

func joinName(first, last string) string {
    switch {
    case last == "":
        return first
    case first == "":
        return last
    }
    return first + " " + last
}
