package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harry-xi/surrealdb.java/surrealql"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// recordRow is one stored record. Content is the CBOR encoded record object,
// including its id field.
type recordRow struct {
	Seq     uint64 `gorm:"primarykey"`
	NS      string `gorm:"column:ns;uniqueIndex:idx_record_key,priority:1"`
	DB      string `gorm:"column:db;uniqueIndex:idx_record_key,priority:2"`
	TB      string `gorm:"column:tb;index"`
	Thing   string `gorm:"column:thing;uniqueIndex:idx_record_key,priority:3"`
	Content []byte
}

func (recordRow) TableName() string { return "records" }

type rootUserRow struct {
	Name         string `gorm:"primarykey"`
	Salt         string
	PasswordHash string
}

func (rootUserRow) TableName() string { return "root_users" }

// store persists records and root users in sqlite through gorm.
type store struct {
	db *gorm.DB
}

func storeDSN(addr Address) string {
	if addr.Engine == EngineMemory {
		// a private in-memory database per datastore
		return "file:" + uuid.New().String() + "?mode=memory&cache=shared"
	}
	// wait up to 5 seconds when the database file is locked
	return addr.Path + "?_busy_timeout=5000"
}

func openStore(ctx context.Context, addr Address) (*store, error) {
	db, err := gorm.Open(sqlite.Open(storeDSN(addr)), &gorm.Config{
		Logger: &storeLogger{level: gormlogger.Warn},
	})
	if err != nil {
		return nil, wrapError(KindConnection, err, "failed to open datastore")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, wrapError(KindConnection, err, "failed to open datastore")
	}
	// one connection keeps the in-memory database alive and serialises writers
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	s := &store{db: db}
	if err := db.WithContext(ctx).AutoMigrate(&recordRow{}, &rootUserRow{}); err != nil {
		_ = s.close()
		return nil, wrapError(KindConnection, err, "failed to initialise datastore")
	}
	if err := s.seedRoot(ctx, addr.User, addr.Pass); err != nil {
		_ = s.close()
		return nil, err
	}
	return s, nil
}

// seedRoot creates the root user unless the datastore already has one of
// that name.
func (s *store) seedRoot(ctx context.Context, user, pass string) error {
	salt := newSalt()
	row := rootUserRow{Name: user, Salt: salt, PasswordHash: hashPassword(salt, pass)}
	err := s.db.WithContext(ctx).Where(rootUserRow{Name: user}).FirstOrCreate(&row).Error
	if err != nil {
		return wrapError(KindConnection, err, "failed to create root user %s", user)
	}
	return nil
}

func (s *store) rootUser(ctx context.Context, name string) (*rootUserRow, error) {
	var row rootUserRow
	err := s.db.WithContext(ctx).Where("name = ?", name).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *store) close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// The helpers below run inside a statement transaction.

func getRecord(tx *gorm.DB, ns, db string, th surrealql.Thing) (surrealql.Object, bool, error) {
	var row recordRow
	err := tx.Where("ns = ? AND db = ? AND thing = ?", ns, db, th.String()).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	obj, err := decodeRecord(row.Content)
	if err != nil {
		return nil, false, err
	}
	return obj, true, nil
}

func scanTable(tx *gorm.DB, ns, db, tb string) ([]surrealql.Object, error) {
	var rows []recordRow
	if err := tx.Where("ns = ? AND db = ? AND tb = ?", ns, db, tb).Order("seq").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]surrealql.Object, 0, len(rows))
	for _, row := range rows {
		obj, err := decodeRecord(row.Content)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

func insertRecord(tx *gorm.DB, ns, db string, th surrealql.Thing, obj surrealql.Object) error {
	content, err := surrealql.MarshalCBOR(obj)
	if err != nil {
		return err
	}
	return tx.Create(&recordRow{NS: ns, DB: db, TB: th.Table, Thing: th.String(), Content: content}).Error
}

func replaceRecord(tx *gorm.DB, ns, db string, th surrealql.Thing, obj surrealql.Object) error {
	content, err := surrealql.MarshalCBOR(obj)
	if err != nil {
		return err
	}
	return tx.Model(&recordRow{}).
		Where("ns = ? AND db = ? AND thing = ?", ns, db, th.String()).
		Update("content", content).Error
}

func deleteRecord(tx *gorm.DB, ns, db string, th surrealql.Thing) error {
	return tx.Where("ns = ? AND db = ? AND thing = ?", ns, db, th.String()).Delete(&recordRow{}).Error
}

func deleteTable(tx *gorm.DB, ns, db, tb string) error {
	return tx.Where("ns = ? AND db = ? AND tb = ?", ns, db, tb).Delete(&recordRow{}).Error
}

func decodeRecord(content []byte) (surrealql.Object, error) {
	v, err := surrealql.UnmarshalCBOR(content)
	if err != nil {
		return nil, fmt.Errorf("corrupt record content: %w", err)
	}
	obj, ok := v.(surrealql.Object)
	if !ok {
		return nil, fmt.Errorf("corrupt record content: stored %s", v.Kind())
	}
	return obj, nil
}

// storeLogger routes gorm logging to the package zap logger.
type storeLogger struct {
	level gormlogger.LogLevel
}

func (l *storeLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &storeLogger{level: level}
}

func (l *storeLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Info {
		Logger().Sugar().Infof(msg, data...)
	}
}

func (l *storeLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Warn {
		Logger().Sugar().Warnf(msg, data...)
	}
}

func (l *storeLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Error {
		Logger().Sugar().Errorf(msg, data...)
	}
}

func (l *storeLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", time.Since(begin)),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		Logger().Warn("datastore statement failed", append(fields, zap.Error(err))...)
		return
	}
	Logger().Debug("datastore statement", fields...)
}
