// internal/store/models.go
package store

import (
	"database/sql"
	"time"
)

type User struct {
	ID                 int64
	Username           string
	Email              string
	PasswordHash       string
	Role               string
	IsActive           bool
	PasswordMustChange bool
	LastLogin          sql.NullTime
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Club struct {
	ID           int64
	Name         string
	ContactEmail sql.NullString
	ContactPhone sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Team struct {
	ID        int64
	ClubID    int64
	Name      string
	AgeGroup  sql.NullString
	Gender    sql.NullString
	Season    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Player struct {
	ID           int64
	ClubID       int64
	TeamID       sql.NullInt64
	FirstName    string
	LastName     string
	JerseyNumber int64
	Gender       sql.NullString
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Competition struct {
	ID              int64
	Name            string
	CompetitionType string
	Season          string
	StartDate       sql.NullTime
	EndDate         sql.NullTime
	Status          string
	PointsWin       int64
	PointsDraw      int64
	PointsLoss      int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Game struct {
	ID                    int64
	HomeClubID            int64
	AwayClubID            int64
	HomeTeamID            sql.NullInt64
	AwayTeamID            sql.NullInt64
	CompetitionID         sql.NullInt64
	ScheduledAt           time.Time
	Location              string
	Status                string
	HomeScore             int64
	AwayScore             int64
	NumberOfPeriods       int64
	PeriodDurationSeconds int64
	CurrentPeriod         int64
	ClockState            string
	TimeRemainingSeconds  int64
	ClockStartedAt        sql.NullTime
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type RosterEntry struct {
	ID               int64
	GameID           int64
	ClubID           int64
	PlayerID         int64
	IsStarting       bool
	IsCaptain        bool
	StartingPosition sql.NullString
	CreatedAt        time.Time
	FirstName        string
	LastName         string
	JerseyNumber     int64
}

type Shot struct {
	ID                   int64
	GameID               int64
	PlayerID             int64
	ClubID               int64
	XCoord               float64
	YCoord               float64
	Result               string
	ShotType             sql.NullString
	Distance             sql.NullFloat64
	Period               int64
	TimeRemainingSeconds int64
	CreatedAt            time.Time
}

type GameEvent struct {
	ID                   int64
	GameID               int64
	EventType            string
	ClubID               sql.NullInt64
	PlayerID             sql.NullInt64
	Period               int64
	TimeRemainingSeconds int64
	Details              sql.NullString
	CreatedAt            time.Time
}

type Substitution struct {
	ID                   int64
	GameID               int64
	ClubID               int64
	PlayerInID           int64
	PlayerOutID          int64
	Period               int64
	TimeRemainingSeconds int64
	Reason               string
	CreatedAt            time.Time
}

type CompetitionTeam struct {
	CompetitionID int64
	TeamID        int64
	Seed          sql.NullInt64
	IsEliminated  bool
	CreatedAt     time.Time
	TeamName      string
	ClubID        int64
}

type TournamentBracket struct {
	ID            int64
	CompetitionID int64
	RoundNumber   int64
	MatchNumber   int64
	RoundName     string
	HomeTeamID    sql.NullInt64
	AwayTeamID    sql.NullInt64
	WinnerTeamID  sql.NullInt64
	GameID        sql.NullInt64
	NextBracketID sql.NullInt64
	IsBye         bool
	CreatedAt     time.Time
}

type CompetitionStanding struct {
	CompetitionID  int64
	TeamID         int64
	TeamName       string
	Position       int64
	GamesPlayed    int64
	Wins           int64
	Draws          int64
	Losses         int64
	GoalsFor       int64
	GoalsAgainst   int64
	GoalDifference int64
	Points         int64
	UpdatedAt      time.Time
}

type Achievement struct {
	ID          int64
	Name        string
	Description string
	Category    string
	Metric      string
	Threshold   int64
	MinShots    int64
	Points      int64
	Icon        string
	CreatedAt   time.Time
}

type PlayerAchievement struct {
	ID              int64
	PlayerID        int64
	AchievementID   int64
	GameID          sql.NullInt64
	EarnedAt        time.Time
	AchievementName string
	Category        string
	Points          int64
}

type ExportSettings struct {
	UserID               int64
	DefaultFormat        string
	IncludeShots         bool
	IncludeEvents        bool
	IncludeSubstitutions bool
	AnonymizePlayers     bool
	UpdatedAt            time.Time
}

type Export struct {
	ID                int64
	PublicID          string
	UserID            sql.NullInt64
	ScheduledReportID sql.NullInt64
	ReportType        string
	TargetID          int64
	Format            string
	Status            string
	FileName          string
	Content           []byte
	SizeBytes         int64
	ErrorMessage      sql.NullString
	CreatedAt         time.Time
	CompletedAt       sql.NullTime
}

type ScheduledReport struct {
	ID             int64
	CreatedBy      int64
	Name           string
	ReportType     string
	TargetID       int64
	Format         string
	CronExpression string
	Recipients     string
	IsActive       bool
	LastRunAt      sql.NullTime
	NextRunAt      sql.NullTime
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type TwizzitCredential struct {
	ID                int64
	OrganizationName  string
	Username          string
	EncryptedPassword string
	APIEndpoint       string
	IsActive          bool
	LastVerifiedAt    sql.NullTime
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type TwizzitMapping struct {
	ID           int64
	CredentialID int64
	EntityType   string
	TwizzitID    string
	LocalID      int64
	TwizzitName  string
	LastSyncedAt time.Time
}

type TwizzitSyncLog struct {
	ID             int64
	RunID          string
	CredentialID   int64
	Scope          string
	Status         string
	ItemsProcessed int64
	ItemsSucceeded int64
	ItemsFailed    int64
	ErrorMessage   sql.NullString
	StartedAt      time.Time
	CompletedAt    sql.NullTime
}
