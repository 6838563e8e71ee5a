package configuration

import (
	"fmt"
	"os"
	"strconv"

	"social-publisher/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Database    Database    `json:"database"`
	RedisClient RedisClient `json:"redisClient"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	BlobStore   BlobStore   `json:"blobStore"`
	Scheduler   Scheduler   `json:"scheduler"`
	OAuth       OAuth       `json:"oauth"`
	Logger      Logger      `json:"logger"`
}

type App struct {
	Port      int    `json:"port"`
	SecretKey string `json:"secretKey"`
	BaseURL   string `json:"baseURL"` // public origin used to build callback URLs
}

type Database struct {
	Psql  Db `json:"psql"`
	MySql Db `json:"mysql"`
	Mongo Db `json:"mongo"`
	Mssql Db `json:"mssql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	Queue     string `json:"queue"`
}

// BlobStore points at the storage service that presigns media URLs.
type BlobStore struct {
	Host       string `json:"host"`
	APIKey     string `json:"apiKey"`
	PresignTTL int    `json:"presignTTL"` // seconds
}

type Scheduler struct {
	SweepIntervalSeconds int `json:"sweepIntervalSeconds"`
	SweepBatchSize       int `json:"sweepBatchSize"`
}

// OAuth holds third-party platform client credentials. Twitter carries both
// an OAuth2 client pair and an OAuth1.0a consumer pair; the two legs are
// granted and validated independently.
type OAuth struct {
	Twitter  TwitterClient `json:"twitter"`
	Facebook OAuthClient   `json:"facebook"`
	YouTube  OAuthClient   `json:"youtube"`
}

type TwitterClient struct {
	ClientID       string `json:"clientId"`
	ClientSecret   string `json:"clientSecret"`
	ConsumerKey    string `json:"consumerKey"`
	ConsumerSecret string `json:"consumerSecret"`
	RedirectURI    string `json:"redirectURI"`
}

type OAuthClient struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	RedirectURI  string `json:"redirectURI"`
}

type Logger struct {
	Format string `json:"format"`
}

var C Config

func init() {
	LoadConfig()
	initApp(&C)
	initDatabase(&C)
	initPlatforms(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
}

func getConfig() string {
	name := "config"
	if env := os.Getenv("ENV"); env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initApp(C *Config) {
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 10002
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10002
	}
	if v := os.Getenv("APP_BASE_URL"); v != "" {
		C.App.BaseURL = v
	}
	if C.App.BaseURL == "" {
		C.App.BaseURL = fmt.Sprintf("http://localhost:%d", C.App.Port)
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
	if C.Scheduler.SweepIntervalSeconds == 0 {
		C.Scheduler.SweepIntervalSeconds = 15
	}
	if C.Scheduler.SweepBatchSize == 0 {
		C.Scheduler.SweepBatchSize = 10
	}
	if C.BlobStore.PresignTTL == 0 {
		C.BlobStore.PresignTTL = 300
	}
}

func initDatabase(C *Config) {
	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}

	// Optional MSSQL config via environment (Azure SQL in production)
	if v := os.Getenv("MSSQL_DB_NAME"); v != "" && C.Database.Mssql.Name == "" {
		C.Database.Mssql.Name = v
	}
	if v := os.Getenv("MSSQL_HOST"); v != "" && C.Database.Mssql.Host == "" {
		C.Database.Mssql.Host = v
	}
	if v := os.Getenv("MSSQL_USER"); v != "" && C.Database.Mssql.User == "" {
		C.Database.Mssql.User = v
	}
	if v := os.Getenv("MSSQL_PASSWORD"); v != "" && C.Database.Mssql.Password == "" {
		C.Database.Mssql.Password = v
	}
	if C.Database.Mssql.Port == "" {
		C.Database.Mssql.Port = "1433"
	}
}

func initPlatforms(C *Config) {
	tw := &C.OAuth.Twitter
	if v := os.Getenv("TWITTER_CLIENT_ID"); v != "" {
		tw.ClientID = v
	}
	if v := os.Getenv("TWITTER_CLIENT_SECRET"); v != "" {
		tw.ClientSecret = v
	}
	if v := os.Getenv("TWITTER_CONSUMER_KEY"); v != "" {
		tw.ConsumerKey = v
	}
	if v := os.Getenv("TWITTER_CONSUMER_SECRET"); v != "" {
		tw.ConsumerSecret = v
	}
	if tw.RedirectURI == "" {
		tw.RedirectURI = fmt.Sprintf("%s/auth/twitter/callback", C.App.BaseURL)
	}
	if C.OAuth.Facebook.RedirectURI == "" {
		C.OAuth.Facebook.RedirectURI = fmt.Sprintf("%s/auth/facebook/callback", C.App.BaseURL)
	}
	if C.OAuth.YouTube.RedirectURI == "" {
		C.OAuth.YouTube.RedirectURI = fmt.Sprintf("%s/auth/youtube/callback", C.App.BaseURL)
	}
	if v := os.Getenv("BLOB_STORE_HOST"); v != "" {
		C.BlobStore.Host = v
	}
	if v := os.Getenv("BLOB_STORE_API_KEY"); v != "" {
		C.BlobStore.APIKey = v
	}
}
