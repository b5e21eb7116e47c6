package config

import (
	"os"
	"sync"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"
)

type Config struct {
	// Port Settings
	Host        string `json:"host"`        // The domain name of the server.
	ServerAddr  string `json:"serverAddr"`  // The address the server endpoint binds to.
	MetricsAddr string `json:"metricsAddr"` // The address the metric endpoint binds to.

	Auth struct {
		AccessTokenSecret      string `json:"accessTokenSecret"`
		RefreshTokenSecret     string `json:"refreshTokenSecret"`
		AccessTokenExpiryHour  int    `json:"accessTokenExpiryHour"`
		RefreshTokenExpiryHour int    `json:"refreshTokenExpiryHour"`
		// Login attempt limiting, counted in Redis per username+IP.
		LoginAttemptLimit     int `json:"loginAttemptLimit"`
		LoginAttemptWindowMin int `json:"loginAttemptWindowMin"`
	} `json:"auth"`

	Postgres struct {
		Host     string `json:"host"`
		Port     string `json:"port"`
		DBName   string `json:"dbname"`
		User     string `json:"user"`
		Password string `json:"password"`
		SSLMode  string `json:"sslmode"`
		TimeZone string `json:"TimeZone"`
	} `json:"postgres"`

	Redis struct {
		Addr     string `json:"addr"` // Empty disables the limiter and capacity cache.
		Password string `json:"password"`
		DB       int    `json:"db"`
	} `json:"redis"`

	SMTP SMTPConf `json:"smtp"`

	// Recommender is the chat-completion service used to propose
	// team/project pairings from motivation letters.
	Recommender struct {
		URL            string `json:"url"`
		APIKey         string `json:"apiKey"`
		Model          string `json:"model"`
		TimeoutSeconds int    `json:"timeoutSeconds"`
		RetryCount     int    `json:"retryCount"`
	} `json:"recommender"`

	// Forecaster is the side service extrapolating a completion date
	// from the project progress history.
	Forecaster struct {
		URL            string `json:"url"`
		TimeoutSeconds int    `json:"timeoutSeconds"`
	} `json:"forecaster"`

	// Rubric weights override the built-in grading table when non-empty.
	RubricWeights map[string]float64 `json:"rubricWeights"`

	CronJobs struct {
		OverdueDigestSpec    string `json:"overdueDigestSpec"`
		ProgressSnapshotSpec string `json:"progressSnapshotSpec"`
	} `json:"cronJobs"`
}

type SMTPConf struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Notify   string `json:"notify"` // Sender address for notification mails.
}

var (
	once   sync.Once
	config *Config
)

func GetConfig() *Config {
	once.Do(func() {
		config = initConfig()
	})
	return config
}

func IsDebugMode() bool {
	return gin.Mode() == gin.DebugMode
}

// initConfig reads the configuration file. In debug mode the path can be
// overridden with ATELIER_DEBUG_CONFIG_PATH; in release mode the file is
// mounted at /etc/config/config.yaml.
func initConfig() *Config {
	config := &Config{}
	var configPath string
	if IsDebugMode() {
		if os.Getenv("ATELIER_DEBUG_CONFIG_PATH") != "" {
			configPath = os.Getenv("ATELIER_DEBUG_CONFIG_PATH")
		} else {
			configPath = "./etc/debug-config.yaml"
		}
	} else {
		configPath = "/etc/config/config.yaml"
	}
	klog.Info("config path: ", configPath)

	if err := readConfig(configPath, config); err != nil {
		klog.Error("init config", err)
		panic(err)
	}
	return config
}

func readConfig(filePath string, config *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return err
	}
	return nil
}
