package twizzit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/store"
)

const (
	ScopeClubs   = "clubs"
	ScopeTeams   = "teams"
	ScopePlayers = "players"
	ScopeFull    = "full"

	EntityClub   = "club"
	EntityTeam   = "team"
	EntityPlayer = "player"

	StatusRunning = "running"
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

var (
	Scopes = []string{ScopeClubs, ScopeTeams, ScopePlayers, ScopeFull}

	ErrInvalidScope       = errors.New("invalid sync scope")
	ErrCredentialInactive = errors.New("twizzit credential is inactive")
)

func ValidScope(scope string) bool {
	for _, s := range Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// ClientFactory builds an API client for a credential and its decrypted password.
type ClientFactory func(cred store.TwizzitCredential, password string) API

// DefaultClientFactory returns fasthttp clients using the credential endpoint.
func DefaultClientFactory(timeout time.Duration) ClientFactory {
	return func(cred store.TwizzitCredential, password string) API {
		return NewClient(ClientConfig{
			BaseURL:  cred.APIEndpoint,
			Username: cred.Username,
			Password: password,
			Timeout:  timeout,
		})
	}
}

// Service verifies credentials and mirrors Twizzit data into the store.
type Service struct {
	q      *store.Queries
	cipher *Cipher
	newAPI ClientFactory
	clock  clockwork.Clock
}

func NewService(q *store.Queries, cipher *Cipher, factory ClientFactory, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{q: q, cipher: cipher, newAPI: factory, clock: clock}
}

func (s *Service) Cipher() *Cipher {
	return s.cipher
}

func (s *Service) client(cred store.TwizzitCredential) (API, error) {
	password, err := s.cipher.Decrypt(cred.EncryptedPassword)
	if err != nil {
		return nil, err
	}
	return s.newAPI(cred, password), nil
}

// Verify authenticates with the stored credential and records the time of
// the successful check.
func (s *Service) Verify(ctx context.Context, credentialID int64) (store.TwizzitCredential, error) {
	cred, err := s.q.GetTwizzitCredential(ctx, credentialID)
	if err != nil {
		return store.TwizzitCredential{}, err
	}
	api, err := s.client(cred)
	if err != nil {
		return cred, err
	}
	if err := api.Authenticate(ctx); err != nil {
		return cred, err
	}
	if err := s.q.MarkTwizzitCredentialVerified(ctx, cred.ID); err != nil {
		return cred, fmt.Errorf("mark verified: %w", err)
	}
	return s.q.GetTwizzitCredential(ctx, cred.ID)
}

type syncRun struct {
	credentialID int64
	scope        string
	api          API
	logger       zerolog.Logger

	processed, succeeded, failed int64
	firstError                   string
}

func (r *syncRun) counts(entity string) bool {
	switch r.scope {
	case ScopeFull:
		return true
	case ScopeClubs:
		return entity == EntityClub
	case ScopeTeams:
		return entity == EntityTeam
	case ScopePlayers:
		return entity == EntityPlayer
	}
	return false
}

func (r *syncRun) record(entity, twizzitID string, err error) {
	if !r.counts(entity) {
		return
	}
	r.processed++
	if err == nil {
		r.succeeded++
		return
	}
	r.failed++
	if r.firstError == "" {
		r.firstError = fmt.Sprintf("%s %s: %v", entity, twizzitID, err)
	}
	r.logger.Warn().Err(err).Str("entity", entity).Str("twizzit_id", twizzitID).Msg("Twizzit item failed to sync")
}

// Sync pulls the requested scope for one credential. The returned log row
// reflects the final status; err is non-nil only when the run could not be
// recorded or the remote API failed as a whole.
func (s *Service) Sync(ctx context.Context, credentialID int64, scope string) (store.TwizzitSyncLog, error) {
	if !ValidScope(scope) {
		return store.TwizzitSyncLog{}, fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}
	cred, err := s.q.GetTwizzitCredential(ctx, credentialID)
	if err != nil {
		return store.TwizzitSyncLog{}, err
	}
	if !cred.IsActive {
		return store.TwizzitSyncLog{}, ErrCredentialInactive
	}

	runID := uuid.NewString()
	entry, err := s.q.CreateTwizzitSyncLog(ctx, runID, cred.ID, scope)
	if err != nil {
		return store.TwizzitSyncLog{}, fmt.Errorf("create sync log: %w", err)
	}

	run := &syncRun{
		credentialID: cred.ID,
		scope:        scope,
		logger: log.Ctx(ctx).With().
			Str("run_id", runID).
			Int64("credential_id", cred.ID).
			Str("scope", scope).
			Logger(),
	}
	run.logger.Info().Msg("Twizzit sync started")

	runErr := s.execute(ctx, cred, run)

	status := StatusSuccess
	message := sql.NullString{}
	switch {
	case runErr != nil:
		status = StatusFailed
		message = store.NullString(runErr.Error())
	case run.failed > 0 && run.succeeded > 0:
		status = StatusPartial
		message = store.NullString(run.firstError)
	case run.failed > 0:
		status = StatusFailed
		message = store.NullString(run.firstError)
	}

	finished, err := s.q.FinishTwizzitSyncLog(context.WithoutCancel(ctx), store.FinishTwizzitSyncLogParams{
		ID:             entry.ID,
		Status:         status,
		ItemsProcessed: run.processed,
		ItemsSucceeded: run.succeeded,
		ItemsFailed:    run.failed,
		ErrorMessage:   message,
	})
	if err != nil {
		return entry, fmt.Errorf("finish sync log: %w", err)
	}

	event := run.logger.Info()
	if status != StatusSuccess {
		event = run.logger.Warn()
	}
	event.Str("status", status).
		Int64("processed", run.processed).
		Int64("failed", run.failed).
		Msg("Twizzit sync finished")
	return finished, runErr
}

// SyncAll runs a full sync for every active credential and reports the
// number of runs that did not succeed.
func (s *Service) SyncAll(ctx context.Context) (int, error) {
	creds, err := s.q.ListActiveTwizzitCredentials(ctx)
	if err != nil {
		return 0, fmt.Errorf("list credentials: %w", err)
	}
	failures := 0
	for _, cred := range creds {
		entry, err := s.Sync(ctx, cred.ID, ScopeFull)
		if err != nil || entry.Status != StatusSuccess {
			failures++
		}
	}
	return failures, nil
}

func (s *Service) execute(ctx context.Context, cred store.TwizzitCredential, run *syncRun) error {
	api, err := s.client(cred)
	if err != nil {
		return err
	}
	run.api = api

	orgs, err := api.Organizations(ctx)
	if err != nil {
		return fmt.Errorf("list organizations: %w", err)
	}
	for _, org := range orgs {
		if err := ctx.Err(); err != nil {
			return err
		}
		clubID, err := s.upsertClub(ctx, run.credentialID, org)
		run.record(EntityClub, string(org.ID), err)
		if err != nil || run.scope == ScopeClubs {
			continue
		}
		if err := s.syncGroups(ctx, run, org, clubID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) syncGroups(ctx context.Context, run *syncRun, org Organization, clubID int64) error {
	groups, err := run.api.Groups(ctx, org.ID)
	if err != nil {
		return fmt.Errorf("list groups for organization %s: %w", org.ID, err)
	}
	for _, group := range groups {
		teamID, err := s.upsertTeam(ctx, run.credentialID, clubID, group)
		run.record(EntityTeam, string(group.ID), err)
		if err != nil || run.scope == ScopeTeams {
			continue
		}
		contacts, err := run.api.Contacts(ctx, org.ID, group.ID)
		if err != nil {
			return fmt.Errorf("list contacts for group %s: %w", group.ID, err)
		}
		for _, contact := range contacts {
			err := s.upsertPlayer(ctx, run.credentialID, clubID, teamID, contact)
			run.record(EntityPlayer, string(contact.ID), err)
		}
	}
	return nil
}

// mappedID returns the local id for a Twizzit entity, or false when there is
// no mapping yet.
func (s *Service) mappedID(ctx context.Context, credentialID int64, entity string, id ID) (int64, bool, error) {
	m, err := s.q.GetTwizzitMapping(ctx, credentialID, entity, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return m.LocalID, true, nil
}

func (s *Service) saveMapping(ctx context.Context, credentialID int64, entity string, id ID, localID int64, name string) error {
	_, err := s.q.UpsertTwizzitMapping(ctx, store.UpsertTwizzitMappingParams{
		CredentialID: credentialID,
		EntityType:   entity,
		TwizzitID:    string(id),
		LocalID:      localID,
		TwizzitName:  name,
	})
	return err
}

func (s *Service) upsertClub(ctx context.Context, credentialID int64, org Organization) (int64, error) {
	name := strings.TrimSpace(org.Name)
	if name == "" {
		return 0, errors.New("organization has no name")
	}

	localID, ok, err := s.mappedID(ctx, credentialID, EntityClub, org.ID)
	if err != nil {
		return 0, err
	}
	var club store.Club
	if ok {
		club, err = s.q.GetClub(ctx, localID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
		ok = err == nil
	}
	switch {
	case ok && club.Name != name:
		club, err = s.q.UpdateClub(ctx, store.UpdateClubParams{
			ID:           club.ID,
			Name:         name,
			ContactEmail: club.ContactEmail,
			ContactPhone: club.ContactPhone,
		})
	case !ok:
		club, err = s.q.GetClubByName(ctx, name)
		if errors.Is(err, sql.ErrNoRows) {
			club, err = s.q.CreateClub(ctx, store.CreateClubParams{Name: name})
		}
	}
	if err != nil {
		return 0, err
	}
	return club.ID, s.saveMapping(ctx, credentialID, EntityClub, org.ID, club.ID, name)
}

func (s *Service) upsertTeam(ctx context.Context, credentialID, clubID int64, group Group) (int64, error) {
	name := strings.TrimSpace(group.Name)
	if name == "" {
		return 0, errors.New("group has no name")
	}
	season := strings.TrimSpace(group.Season)
	if season == "" {
		season = SeasonFor(s.clock.Now())
	}
	params := store.UpdateTeamParams{
		Name:     name,
		AgeGroup: store.NullString(strings.TrimSpace(group.AgeGroup)),
		Gender:   store.NullString(normalizeGender(group.Gender, true)),
		Season:   season,
	}

	localID, ok, err := s.mappedID(ctx, credentialID, EntityTeam, group.ID)
	if err != nil {
		return 0, err
	}
	var team store.Team
	if ok {
		team, err = s.q.GetTeam(ctx, localID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
		ok = err == nil && team.ClubID == clubID
	}
	if !ok {
		team, err = s.q.GetTeamByName(ctx, clubID, name, season)
		if errors.Is(err, sql.ErrNoRows) {
			team, err = s.q.CreateTeam(ctx, store.CreateTeamParams{
				ClubID:   clubID,
				Name:     name,
				AgeGroup: params.AgeGroup,
				Gender:   params.Gender,
				Season:   season,
			})
		}
		if err != nil {
			return 0, err
		}
	}
	if team.Name != params.Name || team.Season != params.Season || team.AgeGroup != params.AgeGroup || team.Gender != params.Gender {
		params.ID = team.ID
		if team, err = s.q.UpdateTeam(ctx, params); err != nil {
			return 0, err
		}
	}
	return team.ID, s.saveMapping(ctx, credentialID, EntityTeam, group.ID, team.ID, name)
}

func (s *Service) upsertPlayer(ctx context.Context, credentialID, clubID, teamID int64, contact Contact) error {
	first, last := strings.TrimSpace(contact.FirstName), strings.TrimSpace(contact.LastName)
	if first == "" || last == "" {
		return errors.New("contact is missing a first or last name")
	}
	if contact.JerseyNumber != nil && (*contact.JerseyNumber < 0 || *contact.JerseyNumber > 99) {
		return fmt.Errorf("jersey number %d out of range", *contact.JerseyNumber)
	}
	gender := store.NullString(normalizeGender(contact.Gender, false))
	team := store.ValidInt64(teamID)

	localID, ok, err := s.mappedID(ctx, credentialID, EntityPlayer, contact.ID)
	if err != nil {
		return err
	}
	var player store.Player
	if ok {
		player, err = s.q.GetPlayer(ctx, localID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		ok = err == nil && player.ClubID == clubID
	}

	if ok {
		jersey := player.JerseyNumber
		if contact.JerseyNumber != nil {
			jersey = *contact.JerseyNumber
		} else if !player.TeamID.Valid || player.TeamID.Int64 != teamID {
			if jersey, err = s.freeJersey(ctx, teamID); err != nil {
				return err
			}
		}
		player, err = s.q.UpdatePlayer(ctx, store.UpdatePlayerParams{
			ID:           player.ID,
			TeamID:       team,
			FirstName:    first,
			LastName:     last,
			JerseyNumber: jersey,
			Gender:       gender,
			IsActive:     true,
		})
	} else {
		var jersey int64
		if contact.JerseyNumber != nil {
			jersey = *contact.JerseyNumber
		} else if jersey, err = s.freeJersey(ctx, teamID); err != nil {
			return err
		}
		player, err = s.q.CreatePlayer(ctx, store.CreatePlayerParams{
			ClubID:       clubID,
			TeamID:       team,
			FirstName:    first,
			LastName:     last,
			JerseyNumber: jersey,
			Gender:       gender,
			IsActive:     true,
		})
	}
	if err != nil {
		return err
	}
	return s.saveMapping(ctx, credentialID, EntityPlayer, contact.ID, player.ID, first+" "+last)
}

// freeJersey picks the lowest jersey number not yet used on the team.
func (s *Service) freeJersey(ctx context.Context, teamID int64) (int64, error) {
	players, err := s.q.ListPlayers(ctx, store.ListPlayersParams{TeamID: &teamID})
	if err != nil {
		return 0, err
	}
	used := make(map[int64]bool, len(players))
	for _, p := range players {
		used[p.JerseyNumber] = true
	}
	for n := int64(1); n <= 99; n++ {
		if !used[n] {
			return n, nil
		}
	}
	return 0, errors.New("no free jersey number on team")
}

// SeasonFor returns the korfball season label for t. Seasons start in August.
func SeasonFor(t time.Time) string {
	year := t.Year()
	if t.Month() < time.August {
		year--
	}
	return fmt.Sprintf("%d-%d", year, year+1)
}

func normalizeGender(raw string, allowMixed bool) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "m", "male", "man", "men":
		return "male"
	case "f", "v", "female", "woman", "women", "vrouw":
		return "female"
	case "x", "mixed", "gemengd":
		if allowMixed {
			return "mixed"
		}
	}
	return ""
}
