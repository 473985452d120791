package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/AleBustamante/moviereviews/auth"
	m "github.com/AleBustamante/moviereviews/models"
)

type userRow struct {
	ID             string         `db:"id"`
	Username       string         `db:"username"`
	Email          string         `db:"email"`
	Password       string         `db:"password"`
	Role           string         `db:"role"`
	ProfilePicture sql.NullString `db:"profile_picture"`
	JoinDate       int64          `db:"join_date"`
}

func (r userRow) toUser() m.User {
	u := m.User{
		ID:       r.ID,
		Username: r.Username,
		Email:    r.Email,
		Role:     r.Role,
		JoinDate: fromStamp(r.JoinDate),
	}
	if r.ProfilePicture.Valid {
		pic := r.ProfilePicture.String
		u.ProfilePicture = &pic
	}
	return u
}

const userColumns = `id, username, email, password, role, profile_picture, join_date`

// InsertNewUser hashes the password and stores the account. The unique index on
// email decides duplicates, so two racing registrations cannot both succeed.
func (s *DBService) InsertNewUser(ctx context.Context, user m.User) (m.User, error) {
	hashedPassword, err := auth.HashPassword(user.Password)
	if err != nil {
		return m.User{}, err
	}

	user.ID = uuid.NewString()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Role == "" {
		user.Role = m.RoleUser
	}
	joined := s.stamp()

	query := s.db.Rebind(`INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, hashedPassword, user.Role, user.ProfilePicture, joined)
	if isUniqueViolation(err) {
		return m.User{}, fmt.Errorf("email %s: %w", user.Email, ErrConflict)
	}
	if err != nil {
		return m.User{}, err
	}

	user.Password = ""
	user.JoinDate = fromStamp(joined)
	return user, nil
}

func (s *DBService) ValidateUser(ctx context.Context, email, password string) (m.User, error) {
	var row userRow
	query := s.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE email = ?`)
	err := s.db.GetContext(ctx, &row, query, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return m.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return m.User{}, err
	}

	if !auth.CheckPassword(row.Password, password) {
		return m.User{}, ErrInvalidCredentials
	}
	return row.toUser(), nil
}

func (s *DBService) GetUserByID(ctx context.Context, userID string) (m.User, error) {
	var row userRow
	query := s.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	err := s.db.GetContext(ctx, &row, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return m.User{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return m.User{}, err
	}
	return row.toUser(), nil
}

// GetUserProfile returns the account plus every review it wrote, newest first.
func (s *DBService) GetUserProfile(ctx context.Context, userID string) (m.UserProfile, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return m.UserProfile{}, err
	}

	var rows []reviewRow
	query := s.db.Rebind(reviewSelect + ` WHERE r.user_id = ? ORDER BY r.created_at DESC, r.id DESC`)
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return m.UserProfile{}, err
	}

	reviews := make([]m.Review, 0, len(rows))
	for _, r := range rows {
		reviews = append(reviews, r.toReview(true))
	}
	return m.UserProfile{User: user, Reviews: reviews}, nil
}

// UpdateUser changes the mutable profile fields. Empty username and nil picture
// leave the stored values alone; with neither set the stored user is returned as is.
func (s *DBService) UpdateUser(ctx context.Context, userID, username string, picture *string) (m.User, error) {
	updates := []string{}
	args := []interface{}{}

	if username = strings.TrimSpace(username); username != "" {
		updates = append(updates, "username = ?")
		args = append(args, username)
	}
	if picture != nil {
		updates = append(updates, "profile_picture = ?")
		args = append(args, *picture)
	}
	if len(updates) == 0 {
		return s.GetUserByID(ctx, userID)
	}

	query := s.db.Rebind(fmt.Sprintf("UPDATE users SET %s WHERE id = ?", strings.Join(updates, ", ")))
	args = append(args, userID)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return m.User{}, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return m.User{}, err
	}
	if rowsAffected == 0 {
		return m.User{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	return s.GetUserByID(ctx, userID)
}
