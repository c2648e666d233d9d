package database

import "context"

const getUserByEmail = `
SELECT id, outlet_id, name, email, password_hash, role, is_active
FROM users
WHERE email = $1 AND is_active = true
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := q.db.QueryRow(ctx, getUserByEmail, email).
		Scan(&u.ID, &u.OutletID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive)
	return u, err
}
