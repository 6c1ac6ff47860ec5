package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"crm-calendar-api/core/database"
	"crm-calendar-api/core/logger"
	"crm-calendar-api/modules/member/entity"
)

type MemberRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Member, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Member, error)
	List(ctx context.Context) ([]entity.Member, error)
	Create(ctx context.Context, member *entity.Member) (*entity.Member, error)
}

type memberRepository struct {
	db database.IDatabase
}

func NewMemberRepository(db database.IDatabase) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Member, error) {
	var member entity.Member
	query := `SELECT * FROM members WHERE id = $1 AND is_active = true`
	err := r.db.GetContext(ctx, &member, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("MemberRepository:GetByID:Error", "error", err, "id", id)
		return nil, err
	}
	return &member, nil
}

func (r *memberRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Member, error) {
	if len(ids) == 0 {
		return []entity.Member{}, nil
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	var members []entity.Member
	query := `SELECT * FROM members WHERE id = ANY($1::uuid[]) AND is_active = true`
	if err := r.db.SelectContext(ctx, &members, query, "{"+joinStrings(idStrings, ",")+"}"); err != nil {
		logger.Error("MemberRepository:GetByIDs:Error", "error", err)
		return nil, err
	}
	return members, nil
}

func (r *memberRepository) List(ctx context.Context) ([]entity.Member, error) {
	var members []entity.Member
	query := `SELECT * FROM members WHERE is_active = true ORDER BY name`
	if err := r.db.SelectContext(ctx, &members, query); err != nil {
		logger.Error("MemberRepository:List:Error", "error", err)
		return nil, err
	}
	return members, nil
}

func (r *memberRepository) Create(ctx context.Context, member *entity.Member) (*entity.Member, error) {
	query := `
		INSERT INTO members (id, name, email, color, is_active, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, member.Name, member.Email, member.Color, member.IsActive).
		Scan(&member.ID, &member.CreatedAt, &member.UpdatedAt)
	if err != nil {
		logger.Error("MemberRepository:Create:Error", "error", err, "email", member.Email)
		return nil, err
	}
	return member, nil
}

func joinStrings(strs []string, sep string) string {
	if len(strs) == 0 {
		return ""
	}
	result := strs[0]
	for i := 1; i < len(strs); i++ {
		result += sep + strs[i]
	}
	return result
}
