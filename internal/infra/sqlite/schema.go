package sqlite

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// User directory
		`CREATE TABLE IF NOT EXISTS users (
			user_id      INTEGER PRIMARY KEY AUTOINCREMENT,
			username     TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL
		)`,

		// Friend pairs, stored once per unordered pair (user_low < user_high)
		`CREATE TABLE IF NOT EXISTS friends (
			user_low     INTEGER NOT NULL,
			user_high    INTEGER NOT NULL,
			requested_by INTEGER NOT NULL,
			status       TEXT NOT NULL DEFAULT 'pending',
			created_at   TEXT NOT NULL,
			PRIMARY KEY (user_low, user_high)
		)`,

		// Workouts
		`CREATE TABLE IF NOT EXISTS workouts (
			workout_id   INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id      INTEGER NOT NULL,
			workout_type TEXT NOT NULL,
			sets         INTEGER NOT NULL,
			reps         INTEGER NOT NULL,
			logged_at    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_workouts_user ON workouts(user_id, logged_at DESC)`,

		// Append-only points ledger. No UPDATE or DELETE ever touches
		// this table; corrections are compensating rows.
		`CREATE TABLE IF NOT EXISTS points_ledger (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id       INTEGER NOT NULL,
			points        INTEGER NOT NULL,
			reason        TEXT NOT NULL,
			ref_id        TEXT NOT NULL DEFAULT '',
			occurred_at   TEXT NOT NULL,
			business_date TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_user ON points_ledger(user_id, occurred_at)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_user_date ON points_ledger(user_id, business_date)`,

		// Cached totals, one row per user. Reproducible from the ledger.
		`CREATE TABLE IF NOT EXISTS points_totals (
			user_id                 INTEGER PRIMARY KEY,
			daily_points            INTEGER NOT NULL DEFAULT 0,
			weekly_points           INTEGER NOT NULL DEFAULT 0,
			total_points            INTEGER NOT NULL DEFAULT 0,
			streak                  INTEGER NOT NULL DEFAULT 0,
			last_streak_update_date TEXT NOT NULL DEFAULT '',
			updated_at              TEXT NOT NULL
		)`,

		// Challenges
		`CREATE TABLE IF NOT EXISTS challenges (
			challenge_id     TEXT PRIMARY KEY,
			sender_user_id   INTEGER NOT NULL,
			receiver_user_id INTEGER NOT NULL,
			base_points      INTEGER NOT NULL,
			status           TEXT NOT NULL DEFAULT 'PENDING',
			created_at       TEXT NOT NULL,
			created_date     TEXT NOT NULL,
			expires_at       TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_challenges_status ON challenges(status, expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_challenges_pair ON challenges(sender_user_id, receiver_user_id, created_date)`,
		// At most one PENDING challenge per ordered pair per business
		// day, enforced where two concurrent creates cannot interleave
		// around it.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_challenges_pending_pair
			ON challenges(sender_user_id, receiver_user_id, created_date)
			WHERE status = 'PENDING'`,

		// Badge catalog + unlocks
		`CREATE TABLE IF NOT EXISTS badges (
			badge_id    INTEGER PRIMARY KEY AUTOINCREMENT,
			code        TEXT NOT NULL UNIQUE,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS user_badges (
			user_id     INTEGER NOT NULL,
			badge_id    INTEGER NOT NULL,
			unlocked_at TEXT NOT NULL,
			PRIMARY KEY (user_id, badge_id)
		)`,

		// Badge catalog seed
		`INSERT OR IGNORE INTO badges (code, name, description) VALUES
			('first_workout', 'First Workout', 'Logged your very first workout'),
			('club_100',      '100 Club',      'Scored 100 points in a single day'),
			('streak_7',      'One Week Strong', 'Kept a 7-day streak alive'),
			('challenger',    'Challenger',    'Completed a head-to-head challenge')`,
	}
}
