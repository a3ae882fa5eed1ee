package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/designloop/sprint-system/models"
	"github.com/designloop/sprint-system/repositories"
	"github.com/designloop/sprint-system/storage"
)

type UpdateProfileInput struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Nickname  *string `json:"nickname"`
}

type UserService struct {
	userRepo repositories.UserRepository
	uploader storage.FileUploader
}

func NewUserService(userRepo repositories.UserRepository, uploader storage.FileUploader) *UserService {
	return &UserService{userRepo: userRepo, uploader: uploader}
}

func (s *UserService) GetUser(ctx context.Context, id int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	user.PasswordHash = ""
	s.resolveAvatarURL(user)
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID int, input UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.Nickname != nil {
		user.Nickname = input.Nickname
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserNicknameConflict) {
			return nil, ErrUserNicknameConflict
		}
		if errors.Is(err, repositories.ErrUserEmailConflict) {
			return nil, ErrUserEmailConflict
		}
		return nil, err
	}

	user.PasswordHash = ""
	s.resolveAvatarURL(user)
	return user, nil
}

func (s *UserService) UploadAvatar(ctx context.Context, userID int, filename, contentType string, reader io.Reader) (*models.User, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: avatar storage is not configured", ErrValidationFailed)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	key := fmt.Sprintf("avatars/%d_%s", userID, filename)
	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	if user.AvatarKey != nil && *user.AvatarKey != result.Key {
		_ = s.uploader.Delete(ctx, *user.AvatarKey)
	}

	if err := s.userRepo.UpdateAvatarKey(ctx, userID, &result.Key); err != nil {
		return nil, err
	}
	user.AvatarKey = &result.Key
	user.PasswordHash = ""
	s.resolveAvatarURL(user)
	return user, nil
}

func (s *UserService) resolveAvatarURL(user *models.User) {
	if s.uploader == nil || user.AvatarKey == nil {
		return
	}
	url := s.uploader.GetPublicURL(*user.AvatarKey)
	user.AvatarURL = &url
}
