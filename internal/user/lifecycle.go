package user

import "fmt"

// Session is the active signed-in user's resolved paths, handed to every
// per-user store (library database, vector, relationship cache, scrobble queue) at
// sign-in time.
type Session struct {
	UserID uint64
	Paths  Paths
}

// SignIn resolves userID's directories, running the one-time flat-layout
// migration first if it has not happened yet.
func SignIn(userID uint64) (*Session, error) {
	if !IsMigrated() {
		if err := MigrateFlatToUser(userID); err != nil {
			return nil, fmt.Errorf("migrate user data: %w", err)
		}
	}

	paths, err := ForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("resolve user paths: %w", err)
	}

	return &Session{UserID: userID, Paths: paths}, nil
}
