package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ysaito/spotbot/internal/config"
)

const minimalYAML = `
symbols:
  - symbol: "BTC/JPY"
    strategy: "ma_crossover"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("BITFLYER_API_KEY", "key")
	t.Setenv("BITFLYER_API_SECRET", "secret")
	t.Setenv("CONFIRM_TRADING", "yes")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setCredentials(t)

	cfg, err := config.Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "1h", cfg.Timeframe)
	assert.Equal(t, 3600, cfg.IntervalSec)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "bot.db", cfg.Storage.SQLitePath)

	require.Len(t, cfg.Symbols, 1)
	sc := cfg.Symbols[0]
	assert.Equal(t, 0.35, sc.MaxPositionPct)
	assert.Equal(t, 0.10, sc.StopLossPct)
	assert.Equal(t, 14, sc.RSIPeriod)
	assert.Equal(t, 30.0, sc.RSIOversold)
	assert.Equal(t, 70.0, sc.RSIOverbought)
	assert.Equal(t, 10, sc.MAShortPeriod)
	assert.Equal(t, 20, sc.MALongPeriod)
}

func TestLoadRequiresConfirmation(t *testing.T) {
	t.Setenv("BITFLYER_API_KEY", "key")
	t.Setenv("BITFLYER_API_SECRET", "secret")
	t.Setenv("CONFIRM_TRADING", "no")

	_, err := config.Load(writeConfig(t, minimalYAML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONFIRM_TRADING")
}

func TestLoadRequiresCredentials(t *testing.T) {
	t.Setenv("BITFLYER_API_KEY", "")
	t.Setenv("BITFLYER_API_SECRET", "")
	t.Setenv("CONFIRM_TRADING", "yes")

	_, err := config.Load(writeConfig(t, minimalYAML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BITFLYER_API_KEY")
}

func TestLoadRequiresSymbols(t *testing.T) {
	setCredentials(t)

	_, err := config.Load(writeConfig(t, "timeframe: \"1h\"\n"))
	assert.Error(t, err)
}

func TestLoadRejectsBadFractions(t *testing.T) {
	setCredentials(t)

	bad := `
symbols:
  - symbol: "BTC/JPY"
    strategy: "ma_crossover"
    max_position_pct: 1.5
`
	_, err := config.Load(writeConfig(t, bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_position_pct")
}

func TestLoadRejectsInvertedMAPeriods(t *testing.T) {
	setCredentials(t)

	bad := `
symbols:
  - symbol: "BTC/JPY"
    strategy: "ma_crossover"
    ma_short_period: 30
    ma_long_period: 20
`
	_, err := config.Load(writeConfig(t, bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ma_short_period")
}

func TestLoadAcceptsUnknownStrategy(t *testing.T) {
	// A typo in the strategy name resolves to holds at runtime instead of
	// refusing to start, so the rest of the symbols keep trading.
	setCredentials(t)

	cfg, err := config.Load(writeConfig(t, `
symbols:
  - symbol: "BTC/JPY"
    strategy: "momentum"
`))
	require.NoError(t, err)
	assert.Equal(t, config.Strategy("momentum"), cfg.Symbols[0].Strategy)
}

func TestMySQLDSNFromEnvironment(t *testing.T) {
	setCredentials(t)
	t.Setenv("MYSQL_DSN", "user:pass@tcp(db:3306)/spotbot?parseTime=true")

	cfg, err := config.Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)
	assert.Equal(t, "user:pass@tcp(db:3306)/spotbot?parseTime=true", cfg.Storage.MySQLDSN)
}
