package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/solestate/estated/internal/core/application"
	"github.com/solestate/estated/internal/core/domain"
	"github.com/solestate/estated/internal/core/ports"
	alertsmanager "github.com/solestate/estated/internal/infrastructure/alertsmanager"
	"github.com/solestate/estated/internal/infrastructure/db"
	"github.com/solestate/estated/internal/infrastructure/ledger"
	timescheduler "github.com/solestate/estated/internal/infrastructure/scheduler/gocron"
	inmemorysequencer "github.com/solestate/estated/internal/infrastructure/sequencer/inmemory"
	redissequencer "github.com/solestate/estated/internal/infrastructure/sequencer/redis"
	"github.com/urfave/cli/v2"
)

var (
	supportedEventDbs = supportedType{
		"badger":   {},
		"postgres": {},
	}
	supportedDbs = supportedType{
		"badger":   {},
		"sqlite":   {},
		"postgres": {},
	}
	supportedSchedulers = supportedType{
		"gocron": {},
	}
	supportedSequencers = supportedType{
		"inmemory": {},
		"redis":    {},
	}
)

type Config struct {
	Datadir  string
	Port     uint32
	LogLevel int

	DbType      string
	EventDbType string
	DbDir       string
	DbUrl       string
	EventDbDir  string
	EventDbUrl  string

	ProgramID             string
	SequencerType         string
	RedisUrl              string
	RedisLockNumOfRetries int
	SchedulerType         string
	AuditInterval         int64
	EnableFaucet          bool
	NoMacaroons           bool

	AlertManagerURL       string
	OtelCollectorEndpoint string
	OtelPushInterval      int64

	repo      ports.RepoManager
	svc       application.Service
	ledger    ports.TokenLedger
	sequencer ports.Sequencer
	scheduler ports.SchedulerService
	deriver   *domain.AddressDeriver
	alerts    ports.Alerts
}

func (c *Config) String() string {
	clone := *c
	clone.DbUrl = maskURL(clone.DbUrl)
	clone.EventDbUrl = maskURL(clone.EventDbUrl)
	clone.RedisUrl = maskURL(clone.RedisUrl)
	json, err := json.MarshalIndent(clone, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	defaultDatadir               = btcutil.AppDataDir("estated", false)
	DefaultPort                  = 7080
	defaultDbType                = "badger"
	defaultEventDbType           = "badger"
	defaultSchedulerType         = "gocron"
	defaultSequencerType         = "inmemory"
	defaultRedisLockNumOfRetries = 50
	defaultLogLevel              = 4
	defaultAuditInterval         = 60 // seconds
	defaultOtelPushInterval      = 10 // seconds
)

// env returns a list of strings prefixed with `ESTATED_`.
func env(values ...string) []string {
	envs := make([]string, len(values))

	for i, value := range values {
		envs[i] = fmt.Sprintf("ESTATED_%s", value)
	}

	return envs
}

var (
	Datadir = &cli.StringFlag{
		Usage: "Directory to store data",
		Name:  "datadir", EnvVars: env("DATADIR"),
		Value: defaultDatadir,
	}

	Port = &cli.UintFlag{
		Usage: "Port to listen on",
		Name:  "port", EnvVars: env("PORT"),
		Value: uint(DefaultPort),
	}

	LogLevel = &cli.IntFlag{
		Usage: "Logging level (0-6, where 6 is trace)",
		Name:  "log-level", EnvVars: env("LOG_LEVEL"),
		Value: defaultLogLevel,
	}

	DbType = &cli.StringFlag{
		Usage: "Database type (postgres, sqlite, badger)",
		Name:  "db-type", EnvVars: env("DB_TYPE"),
		Value: defaultDbType,
	}

	DbUrl = &cli.StringFlag{
		Usage: "Postgres connection url if ESTATED_DB_TYPE is set to postgres",
		Name:  "pg-db-url", EnvVars: env("PG_DB_URL"),
	}

	EventDbType = &cli.StringFlag{
		Usage: "Event database type (postgres, badger)",
		Name:  "event-db-type", EnvVars: env("EVENT_DB_TYPE"),
		Value: defaultEventDbType,
	}

	EventDbUrl = &cli.StringFlag{
		Usage: "Postgres connection url if ESTATED_EVENT_DB_TYPE is set to postgres",
		Name:  "pg-event-db-url", EnvVars: env("PG_EVENT_DB_URL"),
	}

	ProgramID = &cli.StringFlag{
		Usage: "Program id under which record addresses are derived",
		Name:  "program-id", EnvVars: env("PROGRAM_ID"),
		Value: domain.DefaultProgramID,
	}

	SequencerType = &cli.StringFlag{
		Usage: "Sequencer type (inmemory, redis)",
		Name:  "sequencer-type", EnvVars: env("SEQUENCER_TYPE"),
		Value: defaultSequencerType,
	}

	RedisUrl = &cli.StringFlag{
		Usage: "Redis url if ESTATED_SEQUENCER_TYPE is set to redis",
		Name:  "redis-url", EnvVars: env("REDIS_URL"),
	}

	RedisLockNumOfRetries = &cli.IntFlag{
		Usage: "Maximum number of attempts to acquire a redis lock",
		Name:  "redis-num-of-retries", EnvVars: env("REDIS_NUM_OF_RETRIES"),
		Value: defaultRedisLockNumOfRetries,
	}

	SchedulerType = &cli.StringFlag{
		Usage: "Scheduler type (gocron)",
		Name:  "scheduler-type", EnvVars: env("SCHEDULER_TYPE"),
		Value: defaultSchedulerType,
	}

	AuditInterval = &cli.Int64Flag{
		Usage: "Interval in seconds between invariant audits, 0 disables them",
		Name:  "audit-interval", EnvVars: env("AUDIT_INTERVAL"),
		Value: int64(defaultAuditInterval),
	}

	EnableFaucet = &cli.BoolFlag{
		Usage: "Enable the faucet endpoint that mints settlement tokens (dev only)",
		Name:  "enable-faucet", EnvVars: env("ENABLE_FAUCET"),
	}

	NoMacaroons = &cli.BoolFlag{
		Usage: "Disable macaroon authentication of the admin and faucet endpoints",
		Name:  "no-macaroons", EnvVars: env("NO_MACAROONS"),
	}

	AlertManagerURL = &cli.StringFlag{
		Usage: "Prometheus Alertmanager url",
		Name:  "alertmanager-url", EnvVars: env("ALERTMANAGER_URL"),
	}

	OtelCollectorEndpoint = &cli.StringFlag{
		Usage: "OpenTelemetry collector endpoint",
		Name:  "collector-endpoint", EnvVars: env("COLLECTOR_ENDPOINT"),
	}

	OtelPushInterval = &cli.IntFlag{
		Usage: "OpenTelemetry push interval in seconds",
		Name:  "otel-push-interval", EnvVars: env("OTEL_PUSH_INTERVAL"),
		Value: defaultOtelPushInterval,
	}
)

var Flags = []cli.Flag{
	Datadir,
	Port,
	LogLevel,
	DbType,
	DbUrl,
	EventDbType,
	EventDbUrl,
	ProgramID,
	SequencerType,
	RedisUrl,
	RedisLockNumOfRetries,
	SchedulerType,
	AuditInterval,
	EnableFaucet,
	NoMacaroons,
	AlertManagerURL,
	OtelCollectorEndpoint,
	OtelPushInterval,
}

func LoadConfig(c *cli.Context) (*Config, error) {
	if err := initDatadir(c); err != nil {
		return nil, fmt.Errorf("failed to create datadir: %s", err)
	}

	dbPath := filepath.Join(c.String(Datadir.Name), "db")
	if err := makeDirectoryIfNotExists(dbPath); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %s", err)
	}

	var eventDbUrl string
	if c.String(EventDbType.Name) == "postgres" {
		eventDbUrl = c.String(EventDbUrl.Name)
		if eventDbUrl == "" {
			return nil, fmt.Errorf("event db type set to 'postgres' but event db url is missing")
		}
	}

	var dbUrl string
	if c.String(DbType.Name) == "postgres" {
		dbUrl = c.String(DbUrl.Name)
		if dbUrl == "" {
			return nil, fmt.Errorf("db type set to 'postgres' but db url is missing")
		}
	}

	var redisUrl string
	if c.String(SequencerType.Name) == "redis" {
		redisUrl = c.String(RedisUrl.Name)
		if redisUrl == "" {
			return nil, fmt.Errorf("sequencer type set to 'redis' but redis url is missing")
		}
	}

	return &Config{
		Datadir:               c.String(Datadir.Name),
		Port:                  uint32(c.Uint(Port.Name)),
		LogLevel:              c.Int(LogLevel.Name),
		DbType:                c.String(DbType.Name),
		EventDbType:           c.String(EventDbType.Name),
		DbDir:                 dbPath,
		DbUrl:                 dbUrl,
		EventDbDir:            dbPath,
		EventDbUrl:            eventDbUrl,
		ProgramID:             c.String(ProgramID.Name),
		SequencerType:         c.String(SequencerType.Name),
		RedisUrl:              redisUrl,
		RedisLockNumOfRetries: c.Int(RedisLockNumOfRetries.Name),
		SchedulerType:         c.String(SchedulerType.Name),
		AuditInterval:         c.Int64(AuditInterval.Name),
		EnableFaucet:          c.Bool(EnableFaucet.Name),
		NoMacaroons:           c.Bool(NoMacaroons.Name),
		AlertManagerURL:       c.String(AlertManagerURL.Name),
		OtelCollectorEndpoint: c.String(OtelCollectorEndpoint.Name),
		OtelPushInterval:      c.Int64(OtelPushInterval.Name),
	}, nil
}

func initDatadir(c *cli.Context) error {
	datadir := c.String(Datadir.Name)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0o755)
	}
	return nil
}

// Validate checks the config and builds every dependency of the app service
// except the repo manager, which is opened lazily by AppService.
func (c *Config) Validate() error {
	if !supportedEventDbs.supports(c.EventDbType) {
		return fmt.Errorf(
			"event db type not supported, please select one of: %s",
			supportedEventDbs,
		)
	}
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if !supportedSchedulers.supports(c.SchedulerType) {
		return fmt.Errorf(
			"scheduler type not supported, please select one of: %s",
			supportedSchedulers,
		)
	}
	if !supportedSequencers.supports(c.SequencerType) {
		return fmt.Errorf(
			"sequencer type not supported, please select one of: %s",
			supportedSequencers,
		)
	}
	if c.AuditInterval < 0 {
		return fmt.Errorf("audit interval must not be negative")
	}
	if c.OtelCollectorEndpoint != "" && c.OtelPushInterval <= 0 {
		return fmt.Errorf("otel push interval must be positive")
	}
	if err := c.addressDeriver(); err != nil {
		return err
	}
	if err := c.sequencerService(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	if err := c.alertsService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) AppService() (application.Service, error) {
	if c.svc == nil {
		if err := c.appService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

func (c *Config) repoManager() error {
	var eventStoreConfig []interface{}
	var dataStoreConfig []interface{}
	logger := log.New()

	switch c.EventDbType {
	case "badger":
		eventStoreConfig = []interface{}{c.EventDbDir, logger}
	case "postgres":
		eventStoreConfig = []interface{}{c.EventDbUrl}
	default:
		return fmt.Errorf("unknown event db type")
	}

	switch c.DbType {
	case "badger":
		dataStoreConfig = []interface{}{c.DbDir, logger}
	case "sqlite":
		dataStoreConfig = []interface{}{c.DbDir}
	case "postgres":
		dataStoreConfig = []interface{}{c.DbUrl}
	default:
		return fmt.Errorf("unknown db type")
	}

	svc, err := db.NewService(db.ServiceConfig{
		EventStoreType:   c.EventDbType,
		DataStoreType:    c.DbType,
		EventStoreConfig: eventStoreConfig,
		DataStoreConfig:  dataStoreConfig,
	})
	if err != nil {
		return err
	}

	c.repo = svc
	c.ledger = ledger.NewService(svc.Accounts())
	return nil
}

func (c *Config) addressDeriver() error {
	deriver, err := domain.NewAddressDeriver(c.ProgramID)
	if err != nil {
		return err
	}
	c.deriver = deriver
	return nil
}

func (c *Config) sequencerService() error {
	var svc ports.Sequencer
	switch c.SequencerType {
	case "inmemory":
		svc = inmemorysequencer.NewSequencer()
	case "redis":
		redisOpts, err := redis.ParseURL(c.RedisUrl)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(redisOpts)
		svc = redissequencer.NewSequencer(rdb, c.RedisLockNumOfRetries)
	default:
		return fmt.Errorf("unknown sequencer type")
	}

	c.sequencer = svc
	return nil
}

func (c *Config) schedulerService() error {
	switch c.SchedulerType {
	case "gocron":
		c.scheduler = timescheduler.NewScheduler()
	default:
		return fmt.Errorf("unknown scheduler type")
	}
	return nil
}

func (c *Config) alertsService() error {
	if c.AlertManagerURL == "" {
		return nil
	}

	c.alerts = alertsmanager.NewService(c.AlertManagerURL)
	return nil
}

func (c *Config) appService() error {
	if c.deriver == nil || c.sequencer == nil || c.scheduler == nil {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	if c.repo == nil {
		if err := c.repoManager(); err != nil {
			return err
		}
	}

	opts := []application.Option{
		application.WithAudit(c.scheduler, time.Duration(c.AuditInterval)*time.Second),
	}
	if c.alerts != nil {
		opts = append(opts, application.WithAlerts(c.alerts))
	}
	if c.EnableFaucet {
		opts = append(opts, application.WithFaucet())
	}

	svc, err := application.NewService(c.repo, c.ledger, c.sequencer, c.deriver, opts...)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
}

func maskURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.User == nil {
		return rawURL
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	sort.Strings(types)
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
