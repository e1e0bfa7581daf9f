package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	appConfig struct {
		Name             string
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		WorkDir          string
		SecretKey        string
		FrontendBaseURL  string
		RollbarToken     string
		SendgridApiKey   string
		defaultFromEmail string
	}

	serverConfig struct {
		Host                      string
		Address                   string
		DebugAddress              string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		ShutdownTimeout           time.Duration
	}

	storeConfig struct {
		Driver string // memory, file, postgres, redis
		Dir    string // file driver only
		Seed   bool
	}

	dbConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	redisConfig struct {
		Address   string
		Password  string
		DB        int
		KeyPrefix string
	}

	gradingConfig struct {
		Weights map[string]float64
	}

	attendanceConfig struct {
		LowThreshold float64
	}

	Config struct {
		appConfig
		Server     serverConfig
		Store      storeConfig
		Database   dbConfig
		Redis      redisConfig
		Grading    gradingConfig
		Attendance attendanceConfig
	}
)

// DefaultFromEmail parses the configured sender address, falling back to the app name at localhost.
func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.Name, Address: "noreply@localhost"}
	}
	return *addr
}

func (db dbConfig) Address() string {
	return db.Host + ":" + db.Port
}

// NewConfig loads the configuration of the current environment (ENV: DEV (default), TEST, QA, PROD).
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("appName", "Masomo Portal")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Masomo Portal <noreply@localhost>")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverDebugAddress", ":4000")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("serverReadTimeout", 5*time.Second)
	v.SetDefault("serverWriteTimeout", 5*time.Second)
	v.SetDefault("serverShutdownTimeout", 5*time.Second)

	v.SetDefault("storeDriver", "memory")
	v.SetDefault("storeDir", filepath.Join(os.TempDir(), "masomo-portal"))
	v.SetDefault("storeSeed", true)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbName", "portal")
	v.SetDefault("dbUser", "portal")
	v.SetDefault("dbPassword", "")
	v.SetDefault("dbAdminUser", "postgres")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbDisableTLS", true)

	v.SetDefault("redisAddress", "localhost:6379")
	v.SetDefault("redisPassword", "")
	v.SetDefault("redisDB", 0)
	v.SetDefault("redisKeyPrefix", "portal:")

	v.SetDefault("gradingWeights", map[string]interface{}{
		"quiz":       .20,
		"assignment": .20,
		"midterm":    .25,
		"final":      .35,
	})
	v.SetDefault("attendanceLowThreshold", 75.0)

	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd(): %v", err)
	}
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	weights := make(map[string]float64)
	for k, w := range v.GetStringMap("gradingWeights") {
		weights[k] = toFloat(w)
	}

	return &Config{
		appConfig: appConfig{
			Name:             v.GetString("appName"),
			Env:              env,
			Build:            v.GetString("build"),
			Debug:            v.GetBool("debug"),
			TestMode:         v.GetBool("testMode"),
			WorkDir:          wd,
			SecretKey:        v.GetString("secretKey"),
			FrontendBaseURL:  v.GetString("frontendBaseURL"),
			RollbarToken:     v.GetString("rollbarToken"),
			SendgridApiKey:   v.GetString("sendgridApiKey"),
			defaultFromEmail: v.GetString("defaultFromEmail"),
		},
		Server: serverConfig{
			Host:                      v.GetString("serverHost"),
			Address:                   v.GetString("serverAddress"),
			DebugAddress:              v.GetString("serverDebugAddress"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			ReadTimeout:               v.GetDuration("serverReadTimeout"),
			WriteTimeout:              v.GetDuration("serverWriteTimeout"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
		},
		Store: storeConfig{
			Driver: strings.ToLower(v.GetString("storeDriver")),
			Dir:    v.GetString("storeDir"),
			Seed:   v.GetBool("storeSeed"),
		},
		Database: dbConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		Redis: redisConfig{
			Address:   v.GetString("redisAddress"),
			Password:  v.GetString("redisPassword"),
			DB:        v.GetInt("redisDB"),
			KeyPrefix: v.GetString("redisKeyPrefix"),
		},
		Grading: gradingConfig{
			Weights: weights,
		},
		Attendance: attendanceConfig{
			LowThreshold: v.GetFloat64("attendanceLowThreshold"),
		},
	}
}

// NewTestConfig returns the configuration used by package tests: in-memory store, no seed.
func NewTestConfig() *Config {
	conf := NewConfig()
	conf.TestMode = true
	conf.Store.Driver = "memory"
	conf.Store.Seed = false
	return conf
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	}
	return 0
}
