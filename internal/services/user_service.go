package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"chronic_go_backend/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 6

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

type SignupInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	DisplayName *string
	Theme       *string
}

// Signup creates the user together with a personal organization they own.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, *models.Organization, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, nil, invalidf("email is not valid")
	}
	if len(in.Password) < minPasswordLength {
		return nil, nil, invalidf("password must be at least %d characters", minPasswordLength)
	}
	if strings.TrimSpace(in.FirstName) == "" {
		return nil, nil, invalidf("first_name is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
	}
	user.DisplayName = models.FullName(user.FirstName, user.LastName, email)
	org := &models.Organization{Name: fmt.Sprintf("%s's Org", user.FirstName)}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		if err := tx.Create(org).Error; err != nil {
			return err
		}
		return tx.Create(&models.OrgMembership{OrgID: org.ID, UserID: user.ID, Role: models.RoleOwner}).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return user, org, nil
}

// Login checks the credentials and returns the user with their organization.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, *models.Organization, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}

	org, err := s.PrimaryOrg(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return &user, org, nil
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

// PrimaryOrg returns the first organization the user joined.
func (s *UserService) PrimaryOrg(ctx context.Context, userID string) (*models.Organization, error) {
	var membership models.OrgMembership
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoOrganization
	}
	if err != nil {
		return nil, err
	}

	var org models.Organization
	if err := s.db.WithContext(ctx).First(&org, "id = ?", membership.OrgID).Error; err != nil {
		return nil, notFound(err, "organization")
	}
	return &org, nil
}

// UpdateProfile applies the non-nil fields. A bare display name is split into
// first and last name.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*models.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.FirstName == nil && in.LastName == nil && in.DisplayName != nil {
		first, last, _ := strings.Cut(strings.TrimSpace(*in.DisplayName), " ")
		in.FirstName, in.LastName = &first, &last
	}
	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	user.DisplayName = models.FullName(user.FirstName, user.LastName, user.Email)
	if in.Theme != nil {
		switch *in.Theme {
		case "light", "dark", "system":
			user.Theme = *in.Theme
		default:
			return nil, invalidf("theme must be light, dark or system")
		}
	}

	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail looks a user up by address, case-insensitively.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}
