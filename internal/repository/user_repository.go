package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/jikgumate/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

const userColumns = `id, email, password_hash, name, phone, pccc_number, default_address,
	profile_image_url, is_admin, hashed_rt, created_at, updated_at`

// NormalizeEmail trims surrounding whitespace. Case is kept: addresses are
// stored and compared exactly as sent.
func NormalizeEmail(email string) string { return strings.TrimSpace(email) }

// CreateTx inserts u inside tx and sets its ID.  PasswordHash must already
// be a bcrypt digest.
func (r *UserRepo) CreateTx(ctx context.Context, tx *sql.Tx, u *model.User) error {
	u.Email = NormalizeEmail(u.Email)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, name, phone, pccc_number, default_address,
			profile_image_url, is_admin, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		u.Email, u.PasswordHash, u.Name, strOrNil(u.Phone), strOrNil(u.PCCCNumber),
		strOrNil(u.DefaultAddress), strOrNil(u.ProfileImageURL), u.IsAdmin, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// EmailTakenTx reports whether a user with email already exists.
func (r *UserRepo) EmailTakenTx(ctx context.Context, tx *sql.Tx, email string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE email=?", NormalizeEmail(email)).Scan(&n)
	return n > 0, err
}

// GetByEmail fetches a user by exact (trimmed) email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// SetHashedRTTx overwrites (or clears, when hash is nil) the user's
// refresh-token digest.  Writing the row takes the user's row lock for the
// remainder of tx, which serializes concurrent logins and rotations.
// It returns the number of affected rows.
func (r *UserRepo) SetHashedRTTx(ctx context.Context, tx *sql.Tx, userID uint64, hash *string, now time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET hashed_rt=?, updated_at=? WHERE id=?", strOrNil(hash), now, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ProfilePatch lists the profile fields a user may change.  Nil fields are
// left untouched.
type ProfilePatch struct {
	Name            *string
	Phone           *string
	PCCCNumber      *string
	DefaultAddress  *string
	ProfileImageURL *string
}

// UpdateProfile applies patch to the user's row.  sql.ErrNoRows when the
// user does not exist.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, patch ProfilePatch, now time.Time) error {
	sets := []string{"updated_at=?"}
	args := []any{now}
	add := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+"=?")
			args = append(args, *v)
		}
	}
	add("name", patch.Name)
	add("phone", patch.Phone)
	add("pccc_number", patch.PCCCNumber)
	add("default_address", patch.DefaultAddress)
	add("profile_image_url", patch.ProfileImageURL)
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	return affectedOne(res, err)
}

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	var phone, pccc, addr, img, hashedRT sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &phone, &pccc, &addr,
		&img, &u.IsAdmin, &hashedRT, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.Phone = nullStr(phone)
	u.PCCCNumber = nullStr(pccc)
	u.DefaultAddress = nullStr(addr)
	u.ProfileImageURL = nullStr(img)
	u.HashedRT = nullStr(hashedRT)
	return u, nil
}
