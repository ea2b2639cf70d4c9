package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_MODE", "dev")
	t.Setenv("AUDIT_SINK", "")
	t.Setenv("TREE_MEMBER_MAX_DEPTH", "")
	t.Setenv("TREE_ADMIN_MAX_DEPTH", "")
	t.Setenv("ROOT_ADMIN_EMAIL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Tree.MemberMaxDepth)
	assert.Equal(t, 12, cfg.Tree.AdminMaxDepth)
	assert.Equal(t, 3, cfg.Tree.DefaultDepth)
	assert.Equal(t, 50, cfg.Tree.MaxExpanded)
	assert.Equal(t, "log", cfg.Audit.Sink)
	assert.Equal(t, 5, cfg.Invite.MaxAttempts)
}

func TestLoad_ConsistencyCron(t *testing.T) {
	t.Setenv("APP_MODE", "dev")
	t.Setenv("ROOT_ADMIN_EMAIL", "")

	t.Setenv("CONSISTENCY_CRON", "*/5 * * * *")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "*/5 * * * *", cfg.Consistency.Cron)

	t.Setenv("CONSISTENCY_CRON", "")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Consistency.Cron)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_MODE", "dev")
	t.Setenv("TREE_MEMBER_MAX_DEPTH", "4")
	t.Setenv("TREE_ADMIN_MAX_DEPTH", "9")
	t.Setenv("AUDIT_SINK", "Redis")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("ROOT_ADMIN_EMAIL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Tree.MemberMaxDepth)
	assert.Equal(t, 9, cfg.Tree.AdminMaxDepth)
	assert.Equal(t, "redis", cfg.Audit.Sink)
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("ROOT_ADMIN_EMAIL", "")

	t.Setenv("APP_MODE", "staging")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("APP_MODE", "dev")
	t.Setenv("AUDIT_SINK", "kafka")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("AUDIT_SINK", "log")
	t.Setenv("TREE_MEMBER_MAX_DEPTH", "10")
	t.Setenv("TREE_ADMIN_MAX_DEPTH", "3")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("TREE_MEMBER_MAX_DEPTH", "")
	t.Setenv("TREE_ADMIN_MAX_DEPTH", "")
	t.Setenv("ROOT_ADMIN_EMAIL", "root@example.com")
	t.Setenv("ROOT_ADMIN_PASSWORD", "short")
	_, err = Load()
	assert.Error(t, err)
}

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(DatabaseConfig{
		Host:     "db",
		Port:     "3306",
		User:     "app",
		Password: "pw",
		DBName:   "sponsornet",
	})
	assert.Equal(t, "app:pw@tcp(db:3306)/sponsornet?charset=utf8mb4&parseTime=True&loc=UTC", dsn)
}
