package accesscontrol

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Config holds the configuration for the access control service.
type Config struct {
	DB                 *gorm.DB
	RedisClient        *redis.Client // optional; without it every check recomputes
	Logger             *zap.SugaredLogger
	CacheTTL           time.Duration
	CachePrefix        string
	StoreTimeout       time.Duration
	AutoMigrate        bool
	EnableAuditLogging bool

	// OrgPositions and Inheritance enable hierarchical scope adjustment.
	// Both must be set for inheritance to run; by default resolution
	// passes scopes through unchanged.
	OrgPositions OrgPositionProvider
	Inheritance  InheritanceRule
}

// AccessControl is the engine's single entry point: it resolves, caches
// and checks effective permissions and manages role assignments.
type AccessControl struct {
	db           *gorm.DB
	cache        *PermissionCache
	log          *zap.SugaredLogger
	storeTimeout time.Duration
	auditEnabled bool
	positions    OrgPositionProvider
	inheritance  InheritanceRule
	overlays     map[string]ContextOverlay
	flight       singleflight.Group
	resolvers    []PermissionResolver
}

// New initializes the access control service.
func New(cfg Config) (*AccessControl, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("database is required")
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Minute
	}
	if cfg.CachePrefix == "" {
		cfg.CachePrefix = "acl:"
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	if cfg.Inheritance == nil {
		cfg.Inheritance = PassthroughInheritance{}
	}

	if cfg.AutoMigrate {
		err := cfg.DB.AutoMigrate(
			&Role{},
			&Permission{},
			&RolePermission{},
			&UserRoleAssignment{},
			&UserAccess{},
			&AuditLog{},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to auto-migrate: %w", err)
		}
	}

	ac := &AccessControl{
		db:           cfg.DB,
		cache:        NewPermissionCache(cfg.RedisClient, cfg.CachePrefix, cfg.CacheTTL, cfg.Logger),
		log:          cfg.Logger,
		storeTimeout: cfg.StoreTimeout,
		auditEnabled: cfg.EnableAuditLogging,
		positions:    cfg.OrgPositions,
		inheritance:  cfg.Inheritance,
		overlays:     builtinOverlays(),
	}

	// Resolution strategies in fallback order: the cached pipeline first,
	// then a direct recompute that bypasses the cache entirely.
	ac.resolvers = []PermissionResolver{
		&cachedResolver{ac: ac},
		&directResolver{ac: ac},
	}
	return ac, nil
}

// Cache exposes the effective permission cache, mainly for operational
// endpoints and tests.
func (ac *AccessControl) Cache() *PermissionCache {
	return ac.cache
}
