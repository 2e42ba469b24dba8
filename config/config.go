package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Config struct {
	Port        string
	BindAddress string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	RedisHost   string
	RedisPort   string
	JWTSecret   string

	Game GameConfig
}

// GameConfig holds every gameplay tunable. Defaults follow the rules the
// engine was balanced for; override through the environment when needed.
type GameConfig struct {
	TurnTimeout       time.Duration // per-turn limit before a forced switch
	TimeBudgetEasy    int           // per-player total seconds
	TimeBudgetMedium  int
	TimeBudgetHard    int
	HintCost          int
	RevealCost        int
	CorrectLetterPts  int
	WrongLetterPts    int
	WordGuessPts      int // awarded to a player who guesses the full word
	WrongWordPts      int // awarded to the opponent of a wrong full-word guess
	CorrectLetterCoin int
	SignupCoins       int
	WinXP             int
	SweepInterval     time.Duration // timeout sweeper poll period
	SnapshotTTL       time.Duration // redis snapshot expiry
}

func Load() *Config {
	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		BindAddress: getEnv("BIND_ADDRESS", "localhost"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "guessword"),
		DBPassword:  getEnv("DB_PASSWORD", "guessword123"),
		DBName:      getEnv("DB_NAME", "guessword"),
		RedisHost:   getEnv("REDIS_HOST", "localhost"),
		RedisPort:   getEnv("REDIS_PORT", "6379"),
		JWTSecret:   getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		Game:        LoadGameConfig(),
	}
}

func LoadGameConfig() GameConfig {
	return GameConfig{
		TurnTimeout:       time.Duration(getEnvInt("TURN_TIMEOUT_SECONDS", 30)) * time.Second,
		TimeBudgetEasy:    getEnvInt("TIME_BUDGET_EASY", 300),
		TimeBudgetMedium:  getEnvInt("TIME_BUDGET_MEDIUM", 240),
		TimeBudgetHard:    getEnvInt("TIME_BUDGET_HARD", 180),
		HintCost:          getEnvInt("HINT_COST", 1),
		RevealCost:        getEnvInt("REVEAL_COST", 1),
		CorrectLetterPts:  getEnvInt("CORRECT_LETTER_POINTS", 20),
		WrongLetterPts:    getEnvInt("WRONG_LETTER_POINTS", -20),
		WordGuessPts:      getEnvInt("WORD_GUESS_POINTS", 100),
		WrongWordPts:      getEnvInt("WRONG_WORD_OPPONENT_POINTS", 50),
		CorrectLetterCoin: getEnvInt("CORRECT_LETTER_COINS", 1),
		SignupCoins:       getEnvInt("SIGNUP_COINS", 10),
		WinXP:             getEnvInt("WIN_XP", 50),
		SweepInterval:     time.Duration(getEnvInt("SWEEP_INTERVAL_SECONDS", 10)) * time.Second,
		SnapshotTTL:       time.Duration(getEnvInt("SNAPSHOT_TTL_MINUTES", 120)) * time.Minute,
	}
}

// TimeBudget returns the per-player total time budget in seconds for a
// difficulty tier. Unknown tiers fall back to the easy budget.
func (g GameConfig) TimeBudget(difficulty string) int {
	switch difficulty {
	case "medium":
		return g.TimeBudgetMedium
	case "hard":
		return g.TimeBudgetHard
	default:
		return g.TimeBudgetEasy
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func InitRedis(cfg *Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	return client
}
