package database

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"

	"github.com/rpupo63/blog-cms-backend/config"
	"github.com/rpupo63/blog-cms-backend/errs"
)

type Database struct {
	db             *gorm.DB
	postRepo       *PostRepo
	userRepo       *UserRepo
	roleRepo       *RoleRepo
	categoryRepo   *CategoryRepo
	tagRepo        *TagRepo
	commentRepo    *CommentRepo
	bookmarkRepo   *BookmarkRepo
	settingRepo    *SettingRepo
	newsletterRepo *NewsletterRepo
}

// New initializes a new Database struct with each repository using a shared GORM database instance
func New(db *gorm.DB) Database {
	return Database{
		db:             db,
		postRepo:       NewPostRepo(db),
		userRepo:       NewUserRepo(db),
		roleRepo:       NewRoleRepo(db),
		categoryRepo:   NewCategoryRepo(db),
		tagRepo:        NewTagRepo(db),
		commentRepo:    NewCommentRepo(db),
		bookmarkRepo:   NewBookmarkRepo(db),
		settingRepo:    NewSettingRepo(db),
		newsletterRepo: NewNewsletterRepo(db),
	}
}

// Accessor methods for each repository

func (d Database) DB() *gorm.DB {
	return d.db
}

func (d Database) PostRepo() *PostRepo {
	return d.postRepo
}

func (d Database) UserRepo() *UserRepo {
	return d.userRepo
}

func (d Database) RoleRepo() *RoleRepo {
	return d.roleRepo
}

func (d Database) CategoryRepo() *CategoryRepo {
	return d.categoryRepo
}

func (d Database) TagRepo() *TagRepo {
	return d.tagRepo
}

func (d Database) CommentRepo() *CommentRepo {
	return d.commentRepo
}

func (d Database) BookmarkRepo() *BookmarkRepo {
	return d.bookmarkRepo
}

func (d Database) SettingRepo() *SettingRepo {
	return d.settingRepo
}

func (d Database) NewsletterRepo() *NewsletterRepo {
	return d.newsletterRepo
}

// Open connects to the database selected by DB_TYPE ("postgres", "supa" or
// "sqlite") and registers read replicas listed in DB_REPLICA_DSNS.
func Open(c map[string]string) (*gorm.DB, error) {
	dbType := strings.ToLower(config.GetString(c, "DB_TYPE", "postgres"))

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             config.GetDuration(c, "DB_SLOW_QUERY_THRESHOLD", 2*time.Second),
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  config.GetString(c, "LOG_FORMAT", "console") == "console",
		},
	)
	gormConfig := &gorm.Config{
		PrepareStmt:    false,
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var (
		primary  gorm.Dialector
		replicas []gorm.Dialector
	)
	switch dbType {
	case "postgres", "supa":
		primary = postgres.New(postgres.Config{
			DSN:                  postgresDSN(c),
			PreferSimpleProtocol: true,
		})
		for _, dsn := range config.GetStrings(c, "DB_REPLICA_DSNS", nil) {
			replicas = append(replicas, postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}))
		}
	case "sqlite":
		primary = sqlite.Open(SQLiteDSN(config.GetString(c, "SQLITE_PATH", "blog.db")))
		for _, path := range config.GetStrings(c, "DB_REPLICA_DSNS", nil) {
			replicas = append(replicas, sqlite.Open(SQLiteDSN(path)))
		}
	default:
		return nil, errs.NewConfigError("DB_TYPE", fmt.Errorf("unsupported database type %q", dbType))
	}

	db, err := gorm.Open(primary, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	if len(replicas) > 0 {
		err := db.Use(dbresolver.Register(dbresolver.Config{
			Replicas:          replicas,
			Policy:            dbresolver.RandomPolicy{},
			TraceResolverMode: true,
		}))
		if err != nil {
			return nil, fmt.Errorf("error registering read replicas: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if dbType == "sqlite" {
		// one writer at a time
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(config.GetInt(c, "DB_MAX_OPEN_CONNS", 20))
		sqlDB.SetMaxIdleConns(config.GetInt(c, "DB_MAX_IDLE_CONNS", 5))
		sqlDB.SetConnMaxLifetime(config.GetDuration(c, "DB_CONN_MAX_LIFETIME", 30*time.Minute))
	}

	// Test database connection
	var result int
	if err := db.Raw("SELECT 1").Scan(&result).Error; err != nil {
		return nil, fmt.Errorf("error testing database connection: %w", err)
	}

	return db, nil
}

// SQLiteDSN enables foreign keys and a busy timeout on a database file.
func SQLiteDSN(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func postgresDSN(c map[string]string) string {
	if url := config.GetString(c, "DATABASE_URL", ""); url != "" {
		return url
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		config.GetString(c, "DB_HOST", "localhost"),
		config.GetString(c, "DB_USER", "postgres"),
		config.GetString(c, "DB_PASSWORD", ""),
		config.GetString(c, "DB_NAME", "blog"),
		config.GetString(c, "DB_PORT", "5432"),
		config.GetString(c, "DB_SSLMODE", "require"),
	)
}

// Paginate clamps page and limit to the listing defaults and returns the
// row offset.
func Paginate(page, limit int) (offset, size int) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if page <= 0 {
		page = 1
	}
	return (page - 1) * limit, limit
}
