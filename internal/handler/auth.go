package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/rhum-atelier/internal/config"
    "github.com/iliyamo/rhum-atelier/internal/model"
    "github.com/iliyamo/rhum-atelier/internal/repository"
    "github.com/iliyamo/rhum-atelier/internal/utils"
)

// memberCodeAttempts bounds retries when a generated passport code collides.
const memberCodeAttempts = 5

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Cfg    config.Config
    Users  *repository.UserRepo
    Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
    Email       string `json:"email"`
    Password    string `json:"password"`
    FirstName   string `json:"first_name"`
    LastName    string `json:"last_name"`
    Phone       string `json:"phone"`
    Role        string `json:"role"` // USER | PRO
    CompanyName string `json:"company_name"`
    Siret       string `json:"siret"`
    IsEmployee  bool   `json:"is_employee"`
}
type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}
type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type userPart struct {
    ID              uint64  `json:"id"`
    Email           string  `json:"email"`
    FirstName       string  `json:"first_name"`
    LastName        string  `json:"last_name"`
    Phone           string  `json:"phone,omitempty"`
    Role            string  `json:"role"`
    MemberCode      string  `json:"member_code"`
    ConceptionLevel int     `json:"conception_level"`
    CompanyName     *string `json:"company_name,omitempty"`
    IsEmployee      bool    `json:"is_employee"`
    Institutional   bool    `json:"institutional"`
}
type authResp struct {
    User    userPart  `json:"user"`
    Access  tokenPart `json:"access"`
    Refresh tokenPart `json:"refresh"`
}

func toUserPart(u model.User) userPart {
    return userPart{
        ID:              u.ID,
        Email:           u.Email,
        FirstName:       u.FirstName,
        LastName:        u.LastName,
        Phone:           u.Phone,
        Role:            u.Role,
        MemberCode:      u.MemberCode,
        ConceptionLevel: u.ConceptionLevel,
        CompanyName:     u.CompanyName,
        IsEmployee:      u.IsEmployee,
        Institutional:   u.Role == model.RolePro || u.IsEmployee,
    }
}

func optional(s string) *string {
    if s = strings.TrimSpace(s); s == "" {
        return nil
    }
    return &s
}

// Register creates an account with a fresh passport code and returns a
// token pair.  ADMIN cannot be self-assigned.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    req.FirstName = strings.TrimSpace(req.FirstName)
    req.LastName = strings.TrimSpace(req.LastName)
    if req.Email == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
    }
    if req.FirstName == "" || req.LastName == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "first_name/last_name required"})
    }
    if err := utils.CheckPasswordPolicy(req.Password); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    role := strings.ToUpper(strings.TrimSpace(req.Role))
    if role != model.RolePro {
        role = model.RoleUser
    }
    company := optional(req.CompanyName)
    if (role == model.RolePro || req.IsEmployee) && company == nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "company_name required for institutional accounts"})
    }

    hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash password failed"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    nu := repository.NewUser{
        Email:        req.Email,
        PasswordHash: hash,
        FirstName:    req.FirstName,
        LastName:     req.LastName,
        Phone:        strings.TrimSpace(req.Phone),
        Role:         role,
        CompanyName:  company,
        Siret:        optional(req.Siret),
        IsEmployee:   req.IsEmployee,
    }
    var uid uint64
    for attempt := 0; ; attempt++ {
        if nu.MemberCode, err = utils.NewMemberCode(time.Now()); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "member code failed"})
        }
        uid, err = h.Users.Create(ctx, nu)
        if !errors.Is(err, repository.ErrMemberCodeTaken) || attempt == memberCodeAttempts-1 {
            break
        }
    }
    if err != nil {
        if errors.Is(err, repository.ErrEmailExists) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
    }

    u, err := h.Users.GetByID(ctx, uid)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
    }
    resp, err := h.issuePair(ctx, u)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
    }
    return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a new pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if req.Email == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }

    resp, err := h.issuePair(ctx, u)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
    }
    return c.JSON(http.StatusOK, resp)
}

// Refresh rotates a refresh token: the old one is revoked and a new pair
// is issued.  Claims are rebuilt from the current user row.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
    }
    hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    userID, err := h.Tokens.ValidateRefresh(ctx, hash)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
    }
    // A concurrent rotation already consumed this token.
    if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
    }
    u, err := h.Users.GetByID(ctx, userID)
    if err != nil || !u.IsActive {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
    }

    resp, err := h.issuePair(ctx, u)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
    }
    return c.JSON(http.StatusOK, resp)
}

// Logout revokes the refresh token given in the body, or every session of
// the caller when the body has none.  Mounted behind JWTAuth.
func (h *AuthHandler) Logout(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req refreshReq
    _ = c.Bind(&req)

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if raw := strings.TrimSpace(req.RefreshToken); raw != "" {
        hash := utils.HashRefreshRaw(raw)
        owner, err := h.Tokens.ValidateRefresh(ctx, hash)
        if err != nil || owner != uid {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
        }
        if err := h.Tokens.RevokeByHash(ctx, hash); err != nil && !errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
        }
        return c.NoContent(http.StatusNoContent)
    }
    if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
    }
    return c.NoContent(http.StatusNoContent)
}

// Me returns the session identity, including the passport code and the
// current conception level.
func (h *AuthHandler) Me(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    u, err := h.Users.GetByID(ctx, uid)
    if err != nil {
        return respondError(c, err, "load user failed")
    }
    return c.JSON(http.StatusOK, toUserPart(u))
}

func (h *AuthHandler) issuePair(ctx context.Context, u model.User) (authResp, error) {
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret,
        utils.AccessClaims{UserID: u.ID, Role: u.Role, MemberCode: u.MemberCode}, h.Cfg.AccessTTLMin)
    if err != nil {
        return authResp{}, errors.New("issue access failed")
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return authResp{}, errors.New("issue refresh failed")
    }
    if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return authResp{}, errors.New("save refresh failed")
    }
    return authResp{
        User:    toUserPart(u),
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
    }, nil
}
