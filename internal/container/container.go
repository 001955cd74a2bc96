package container

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/alaklabs/goacl/config"
	"github.com/alaklabs/goacl/internal/cache"
	"github.com/alaklabs/goacl/internal/domain/repository"
	"github.com/alaklabs/goacl/pkg/helpers"
)

// App-level container sharing constructed components across packages so
// the router can auto-wire modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	sqlDB       *sqlx.DB
	redisClient *redis.Client

	jwtManager   *helpers.JWTManager
	cacheBackend cache.Backend
	identityRepo repository.IdentityRepository
	roleRepo     repository.RoleRepository
	rabbitPub    *helpers.RabbitPublisher
)

func SetConfig(c *config.Config)   { cfg = c }
func GetConfig() *config.Config    { return cfg }
func SetLogger(l *logrus.Logger)   { logger = l }
func GetLogger() *logrus.Logger    { return logger }
func SetPGPool(p *pgxpool.Pool)    { pgPool = p }
func GetPGPool() *pgxpool.Pool     { return pgPool }
func SetSQLDB(db *sqlx.DB)         { sqlDB = db }
func GetSQLDB() *sqlx.DB           { return sqlDB }
func SetRedis(r *redis.Client)     { redisClient = r }
func GetRedis() *redis.Client      { return redisClient }
func SetJWT(m *helpers.JWTManager) { jwtManager = m }
func GetJWT() *helpers.JWTManager  { return jwtManager }

func SetCache(b cache.Backend) { cacheBackend = b }
func GetCache() cache.Backend  { return cacheBackend }

func SetIdentityRepo(r repository.IdentityRepository) { identityRepo = r }
func GetIdentityRepo() repository.IdentityRepository  { return identityRepo }
func SetRoleRepo(r repository.RoleRepository)         { roleRepo = r }
func GetRoleRepo() repository.RoleRepository          { return roleRepo }

func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }
