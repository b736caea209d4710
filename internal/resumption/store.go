// ABOUTME: Resumption data store for registered applications, backed by the dbms storage layer
// ABOUTME: Tracks saved app state across ignition cycles and drops apps that outlive their lifes

package resumption

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/sdl-storage/internal/dbms"
)

// ErrNotFound is returned when no application is saved for the given key
var ErrNotFound = errors.New("not found")

// HMILevel is the HMI level an application held when it was saved
type HMILevel int32

const (
	HMILevelFull HMILevel = iota
	HMILevelLimited
	HMILevelBackground
	HMILevelNone
)

func (l HMILevel) String() string {
	switch l {
	case HMILevelFull:
		return "FULL"
	case HMILevelLimited:
		return "LIMITED"
	case HMILevelBackground:
		return "BACKGROUND"
	case HMILevelNone:
		return "NONE"
	default:
		return fmt.Sprintf("HMILevel(%d)", int32(l))
	}
}

// Application is the saved resumption state of one app on one device
type Application struct {
	AppID         string
	DeviceID      string
	HashID        string
	GrammarID     uint32
	ConnectionKey uint32
	HMILevel      HMILevel
	IgnOffCount   int32
	SuspendCount  int32
	IsMedia       bool
	TimeStamp     time.Time
}

// Store persists resumption data. All methods serialize on one lock, so a
// transaction never interleaves with another caller's statements.
type Store struct {
	db     *dbms.Database
	lifes  int32
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

const (
	createResumptionTable = `CREATE TABLE IF NOT EXISTS resumption (
		idresumption INTEGER PRIMARY KEY,
		last_ign_off_time INTEGER NOT NULL DEFAULT 0
	)`

	createApplicationTable = `CREATE TABLE IF NOT EXISTS application (
		app_id TEXT NOT NULL,
		device_id TEXT NOT NULL,
		hash_id TEXT NOT NULL,
		grammar_id INTEGER NOT NULL DEFAULT 0,
		connection_key INTEGER NOT NULL DEFAULT 0,
		hmi_level INTEGER NOT NULL DEFAULT 3,
		ign_off_count INTEGER NOT NULL DEFAULT 0,
		suspend_count INTEGER NOT NULL DEFAULT 0,
		is_media INTEGER NOT NULL DEFAULT 0,
		time_stamp INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (app_id, device_id)
	)`

	seedResumptionRow = `INSERT OR IGNORE INTO resumption (idresumption, last_ign_off_time) VALUES (1, 0)`

	applicationColumns = `app_id, device_id, hash_id, grammar_id, connection_key,
		hmi_level, ign_off_count, suspend_count, is_media, time_stamp`
)

// New creates a Store on an open database and creates the schema if needed.
// Applications whose ign_off_count reaches lifes are dropped on suspend;
// zero keeps them forever.
func New(db *dbms.Database, lifes int32) (*Store, error) {
	s := &Store{
		db:     db,
		lifes:  lifes,
		logger: slog.Default().With("component", "resumption"),
		now:    time.Now,
	}

	if err := s.createSchema(); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

func (s *Store) createSchema() error {
	q := dbms.NewQuery(s.db)
	defer q.Finalize()

	for _, stmt := range []string{createResumptionTable, createApplicationTable, seedResumptionRow} {
		if err := q.ExecDirect(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Save stores app, replacing any earlier state for the same app and device.
// A missing HashID is generated and a zero TimeStamp is set to now; both are
// written back to app.
func (s *Store) Save(app *Application) error {
	if app.AppID == "" || app.DeviceID == "" {
		return fmt.Errorf("saving application: app id and device id are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if app.HashID == "" {
		app.HashID = uuid.NewString()
	}
	if app.TimeStamp.IsZero() {
		app.TimeStamp = s.now()
	}

	err := s.withTx(func() error {
		if err := s.exec(`DELETE FROM application WHERE app_id = ? AND device_id = ?`,
			app.AppID, app.DeviceID); err != nil {
			return err
		}
		return s.exec(`INSERT INTO application (`+applicationColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			app.AppID, app.DeviceID, app.HashID, app.GrammarID, app.ConnectionKey,
			int32(app.HMILevel), app.IgnOffCount, app.SuspendCount, app.IsMedia,
			app.TimeStamp.Unix())
	})
	if err != nil {
		return fmt.Errorf("saving application %s: %w", app.AppID, err)
	}

	s.logger.Debug("application saved", "app_id", app.AppID, "device_id", app.DeviceID, "hash_id", app.HashID)
	return nil
}

// Get returns the saved state of an app on a device.
// Returns ErrNotFound if nothing is saved for the pair.
func (s *Store) Get(appID, deviceID string) (*Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := dbms.NewQuery(s.db)
	defer q.Finalize()

	if err := q.Prepare(`SELECT ` + applicationColumns + ` FROM application
		WHERE app_id = ? AND device_id = ?`); err != nil {
		return nil, fmt.Errorf("getting application: %w", err)
	}
	if err := bindAll(q, appID, deviceID); err != nil {
		return nil, fmt.Errorf("getting application: %w", err)
	}

	if !q.Next() {
		if err := q.Err(); err != nil {
			return nil, fmt.Errorf("getting application: %w", err)
		}
		return nil, ErrNotFound
	}
	return scanApplication(q), nil
}

// List returns every saved application ordered by app and device id.
func (s *Store) List() ([]*Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := dbms.NewQuery(s.db)
	defer q.Finalize()

	if err := q.Prepare(`SELECT ` + applicationColumns + ` FROM application
		ORDER BY app_id, device_id`); err != nil {
		return nil, fmt.Errorf("listing applications: %w", err)
	}

	var apps []*Application
	for q.Next() {
		apps = append(apps, scanApplication(q))
	}
	if err := q.Err(); err != nil {
		return nil, fmt.Errorf("listing applications: %w", err)
	}
	return apps, nil
}

// Delete removes the saved state of an app on a device.
// Returns ErrNotFound if nothing was saved for the pair.
func (s *Store) Delete(appID, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	err := s.withTx(func() error {
		var err error
		n, err = s.scalar(`SELECT count(*) FROM application WHERE app_id = ? AND device_id = ?`, appID, deviceID)
		if err != nil || n == 0 {
			return err
		}
		return s.exec(`DELETE FROM application WHERE app_id = ? AND device_id = ?`, appID, deviceID)
	})
	if err != nil {
		return fmt.Errorf("deleting application %s: %w", appID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// OnSuspend records an ignition off. Every saved application ages by one
// cycle and those that reached the configured lifes are dropped.
// Returns the number of applications dropped.
func (s *Store) OnSuspend() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dropped int
	err := s.withTx(func() error {
		if err := s.exec(`UPDATE application SET ign_off_count = ign_off_count + 1`); err != nil {
			return err
		}
		if err := s.exec(`UPDATE resumption SET last_ign_off_time = ? WHERE idresumption = 1`,
			s.now().Unix()); err != nil {
			return err
		}
		if s.lifes <= 0 {
			return nil
		}
		var err error
		dropped, err = s.dropOutdated(s.lifes)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("suspending: %w", err)
	}

	s.logger.Info("ignition off recorded", "dropped", dropped)
	return dropped, nil
}

// DropOutdated removes applications whose ign_off_count is at least
// maxIgnOff and returns how many were removed.
func (s *Store) DropOutdated(maxIgnOff int32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dropped int
	err := s.withTx(func() error {
		var err error
		dropped, err = s.dropOutdated(maxIgnOff)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("dropping outdated applications: %w", err)
	}
	return dropped, nil
}

func (s *Store) dropOutdated(maxIgnOff int32) (int, error) {
	n, err := s.scalar(`SELECT count(*) FROM application WHERE ign_off_count >= ?`, maxIgnOff)
	if err != nil || n == 0 {
		return 0, err
	}
	if err := s.exec(`DELETE FROM application WHERE ign_off_count >= ?`, maxIgnOff); err != nil {
		return 0, err
	}
	s.logger.Debug("outdated applications dropped", "count", n, "max_ign_off", maxIgnOff)
	return int(n), nil
}

// IgnOffTime returns the time of the last recorded ignition off, or the zero
// time if none was recorded.
func (s *Store) IgnOffTime() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	secs, err := s.scalar(`SELECT last_ign_off_time FROM resumption WHERE idresumption = 1`)
	if err != nil {
		return time.Time{}, fmt.Errorf("reading ignition off time: %w", err)
	}
	if secs == 0 {
		return time.Time{}, nil
	}
	return time.Unix(secs, 0), nil
}

// withTx runs fn inside a transaction. When fn fails the transaction is
// rolled back; a failed commit is reported as is.
func (s *Store) withTx(fn func() error) error {
	if err := s.db.BeginTransaction(); err != nil {
		return err
	}

	if err := fn(); err != nil {
		if rbErr := s.db.RollbackTransaction(); rbErr != nil {
			s.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}

	return s.db.CommitTransaction()
}

// exec runs one statement with positional args and releases it.
func (s *Store) exec(sql string, args ...any) error {
	q := dbms.NewQuery(s.db)
	defer q.Finalize()

	if err := q.Prepare(sql); err != nil {
		return err
	}
	if err := bindAll(q, args...); err != nil {
		return err
	}
	return q.Exec()
}

// scalar runs a single-value query and returns its first column.
func (s *Store) scalar(sql string, args ...any) (int64, error) {
	q := dbms.NewQuery(s.db)
	defer q.Finalize()

	if err := q.Prepare(sql); err != nil {
		return 0, err
	}
	if err := bindAll(q, args...); err != nil {
		return 0, err
	}
	if !q.Next() {
		return 0, q.Err()
	}
	return q.Int64(0), nil
}

func bindAll(q *dbms.Query, args ...any) error {
	for i, arg := range args {
		if err := q.Bind(i, arg); err != nil {
			return err
		}
	}
	return nil
}

func scanApplication(q *dbms.Query) *Application {
	return &Application{
		AppID:         q.Text(0),
		DeviceID:      q.Text(1),
		HashID:        q.Text(2),
		GrammarID:     q.Uint(3),
		ConnectionKey: q.Uint(4),
		HMILevel:      HMILevel(q.Int(5)),
		IgnOffCount:   q.Int(6),
		SuspendCount:  q.Int(7),
		IsMedia:       q.Bool(8),
		TimeStamp:     time.Unix(q.Int64(9), 0),
	}
}
