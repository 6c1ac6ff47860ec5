package service

import (
	"context"

	"github.com/google/uuid"

	"crm-calendar-api/core/errors"
	"crm-calendar-api/core/logger"
	"crm-calendar-api/modules/member/dto"
	"crm-calendar-api/modules/member/entity"
	"crm-calendar-api/modules/member/repository"
)

// Default display color for members created without one.
const defaultMemberColor = "#6366f1"

type MemberService interface {
	GetMember(ctx context.Context, id uuid.UUID) (*entity.Member, error)
	GetMembersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]entity.Member, error)
	ListMembers(ctx context.Context) ([]dto.MemberResponse, error)
	CreateMember(ctx context.Context, req *dto.CreateMemberRequest) (*dto.MemberResponse, error)
}

type memberService struct {
	repo repository.MemberRepository
}

func NewMemberService(repo repository.MemberRepository) MemberService {
	return &memberService{repo: repo}
}

func (s *memberService) GetMember(ctx context.Context, id uuid.UUID) (*entity.Member, error) {
	member, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to get member", err)
	}
	if member == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "member not found", nil)
	}
	return member, nil
}

// GetMembersByIDs returns the members keyed by id for event tagging.
func (s *memberService) GetMembersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]entity.Member, error) {
	members, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to get members", err)
	}

	byID := make(map[uuid.UUID]entity.Member, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}
	return byID, nil
}

func (s *memberService) ListMembers(ctx context.Context) ([]dto.MemberResponse, error) {
	members, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to list members", err)
	}

	result := make([]dto.MemberResponse, 0, len(members))
	for _, m := range members {
		result = append(result, dto.MemberResponse{
			ID:    m.ID.String(),
			Name:  m.Name,
			Email: m.Email,
			Color: m.Color,
		})
	}
	return result, nil
}

func (s *memberService) CreateMember(ctx context.Context, req *dto.CreateMemberRequest) (*dto.MemberResponse, error) {
	if req.Name == "" || req.Email == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "name and email are required", nil)
	}

	color := req.Color
	if color == "" {
		color = defaultMemberColor
	}

	member := &entity.Member{
		Name:     req.Name,
		Email:    req.Email,
		Color:    color,
		IsActive: true,
	}

	created, err := s.repo.Create(ctx, member)
	if err != nil {
		logger.Error("MemberService:CreateMember:Error", "error", err, "email", req.Email)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to create member", err)
	}

	return &dto.MemberResponse{
		ID:    created.ID.String(),
		Name:  created.Name,
		Email: created.Email,
		Color: created.Color,
	}, nil
}
