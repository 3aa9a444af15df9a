package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ストレージの種類
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Configはアプリ全体の設定
type Config struct {
	Port     string // サーバーポート（8080）
	GoEnv    string // development/production
	LogLevel string // debug/info/warn/error

	StorageDriver string // postgres/memory

	DatabaseURL      string // あればPostgres*より優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string // disable/require

	JWTSecret      string        // JWT署名シークレット
	AccessTokenTTL time.Duration // アクセストークンの有効期限
	BcryptCost     int

	AssetBucketURL     string        // gocloudのURL（file:///var/assets, mem://）
	AssetKeyPrefix     string        // オブジェクトキーの接頭辞
	AssetPublicBaseURL string        // 公開URLのベース。空なら署名付きURL
	AssetURLExpiry     time.Duration // 署名付きURLの有効期限
	MaxImageBytes      int64         // 画像の上限サイズ
}

// Loadは環境変数
func Load() (Config, error) {
	var err error
	cfg := Config{
		Port:     getenv("PORT", "8080"),
		GoEnv:    getenv("GO_ENV", "development"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		StorageDriver: strings.ToLower(getenv("STORAGE_DRIVER", StoragePostgres)),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		AssetBucketURL:     getenv("ASSET_BUCKET_URL", "mem://"),
		AssetKeyPrefix:     getenv("ASSET_KEY_PREFIX", "products/"),
		AssetPublicBaseURL: strings.TrimRight(os.Getenv("ASSET_PUBLIC_BASE_URL"), "/"),
	}

	if cfg.PostgresPort, err = atoiOr("POSTGRES_PORT", 5432); err != nil {
		return Config{}, err
	}
	if cfg.BcryptCost, err = atoiOr("BCRYPT_COST", 12); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = durationOr("ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.AssetURLExpiry, err = durationOr("ASSET_URL_EXPIRY", 15*time.Minute); err != nil {
		return Config{}, err
	}
	maxImage, err := atoiOr("MAX_IMAGE_BYTES", 5<<20)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxImageBytes = int64(maxImage)

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	switch cfg.StorageDriver {
	case StorageMemory:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			if err := requirePostgres(cfg); err != nil {
				return Config{}, err
			}
		}
	default:
		return Config{}, fmt.Errorf("STORAGE_DRIVER must be %s or %s", StoragePostgres, StorageMemory)
	}

	return cfg, nil
}

// DATABASE_URLが無いときのDSN
func (c Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func (c Config) IsProduction() bool {
	return c.GoEnv == "production"
}

func requirePostgres(cfg Config) error {
	required := []struct {
		key string
		val string
	}{
		{"POSTGRES_USER", cfg.PostgresUser},
		{"POSTGRES_PASSWORD", cfg.PostgresPassword},
		{"POSTGRES_DB", cfg.PostgresDB},
		{"POSTGRES_HOST", cfg.PostgresHost},
	}
	for _, r := range required {
		if r.val == "" {
			return fmt.Errorf("%s is required", r.key)
		}
	}
	return nil
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationOr(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}
