package auth

import (
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	errors "github.com/approveflow/expense-service/internal"
	companyDatamodel "github.com/approveflow/expense-service/internal/core/datamodel/company"
	userDatamodel "github.com/approveflow/expense-service/internal/core/datamodel/user"
	"github.com/approveflow/expense-service/internal/currency"
)

// Repository defines the persistence needed by authentication: user lookup
// plus the signup transaction that creates a company with its first admin.
type Repository interface {
	GetUserByEmail(email string) (*userDatamodel.User, error)
	GetUserByID(id int64) (*userDatamodel.User, error)
	CreateCompanyWithAdmin(company *companyDatamodel.Company, admin *userDatamodel.User) error
}

type Service struct {
	repo           Repository
	tokenGenerator TokenGenerator
	bcryptCost     int
	logger         *slog.Logger
}

func NewService(repo Repository, tokenGen TokenGenerator, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:           repo,
		tokenGenerator: tokenGen,
		bcryptCost:     bcryptCost,
		logger:         logger,
	}
}

// Signup provisions a company and its first admin user. The company default
// currency derives from the given country; USD when the country is unknown.
func (s *Service) Signup(dto SignupDTO) (*AuthResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(dto.Email))
	if existing, err := s.repo.GetUserByEmail(email); err == nil && existing != nil {
		return nil, errors.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, errors.NewInternalError("failed to hash password", err)
	}

	defaultCurrency := currency.CurrencyForCountry(dto.Country)
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}

	company := &companyDatamodel.Company{
		Name:            dto.CompanyName,
		DefaultCurrency: defaultCurrency,
		Country:         dto.Country,
	}
	admin := &userDatamodel.User{
		Email:        email,
		Name:         dto.Name,
		PasswordHash: string(hash),
		Role:         RoleAdmin,
	}

	if err := s.repo.CreateCompanyWithAdmin(company, admin); err != nil {
		s.logger.Error("signup failed", "error", err, "email", email)
		return nil, errors.NewInternalError("failed to create company", err)
	}

	token, err := s.tokenGenerator.GenerateAccessToken(admin.ID, company.ID, admin.Role)
	if err != nil {
		return nil, errors.NewInternalError("failed to issue token", err)
	}

	s.logger.Info("company signed up",
		"company_id", company.ID,
		"admin_id", admin.ID,
		"default_currency", defaultCurrency)

	return &AuthResponse{
		Token: token,
		User:  ActorView{ID: admin.ID, Email: admin.Email, Role: admin.Role},
		Company: &CompanyView{
			ID:              company.ID,
			Name:            company.Name,
			DefaultCurrency: company.DefaultCurrency,
		},
	}, nil
}

// Authenticate validates credentials and returns a signed token.
func (s *Service) Authenticate(dto LoginDTO) (*AuthResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(dto.Email))
	user, err := s.repo.GetUserByEmail(email)
	if err != nil || user == nil {
		return nil, errors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(dto.Password)); err != nil {
		return nil, errors.ErrInvalidCredentials
	}

	token, err := s.tokenGenerator.GenerateAccessToken(user.ID, user.CompanyID, user.Role)
	if err != nil {
		return nil, errors.NewInternalError("failed to issue token", err)
	}

	return &AuthResponse{
		Token: token,
		User:  ActorView{ID: user.ID, Email: user.Email, Role: user.Role},
	}, nil
}

// ValidateAccessToken validates an access token and returns its claims.
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateToken(tokenString)
}

// ActorFromToken resolves the authenticated actor behind a token, verifying
// the user still exists.
func (s *Service) ActorFromToken(tokenString string) (*Actor, error) {
	claims, err := s.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByID(claims.UserID)
	if err != nil || user == nil {
		return nil, errors.ErrInvalidToken
	}

	return &Actor{
		ID:        user.ID,
		CompanyID: user.CompanyID,
		Email:     user.Email,
		Role:      user.Role,
	}, nil
}

// JWTTokenGenerator signs HMAC access tokens carrying the actor triple.
type JWTTokenGenerator struct {
	Secret         []byte
	AccessTokenTTL time.Duration
}

func NewJWTTokenGenerator(secret string, ttl time.Duration) *JWTTokenGenerator {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &JWTTokenGenerator{
		Secret:         []byte(secret),
		AccessTokenTTL: ttl,
	}
}

func (j *JWTTokenGenerator) GenerateAccessToken(userID, companyID int64, role string) (string, error) {
	expiresAt := time.Now().Add(j.AccessTokenTTL)

	claims := &Claims{
		UserID:    userID,
		CompanyID: companyID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.ErrInvalidToken
		}
		return j.Secret, nil
	})
	if err != nil {
		if strings.Contains(err.Error(), "expired") {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.ErrInvalidToken
	}
	if !token.Valid {
		return nil, errors.ErrInvalidToken
	}
	return claims, nil
}
