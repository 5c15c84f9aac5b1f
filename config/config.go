/*
Copyright 2025 Tally Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5000"

	// DEFAULT_SYNC_WINDOW_DAYS is the trailing window requested from providers
	// that sync by date range rather than by cursor.
	DEFAULT_SYNC_WINDOW_DAYS = 30
)

var ConfigStore atomic.Value

type ServerConfig struct {
	Port string `json:"port" envconfig:"TALLY_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"TALLY_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"TALLY_REDIS_DNS"`
}

type PlaidConfig struct {
	ClientID    string `json:"client_id" envconfig:"TALLY_PLAID_CLIENT_ID"`
	Secret      string `json:"secret" envconfig:"TALLY_PLAID_SECRET"`
	Environment string `json:"environment" envconfig:"TALLY_PLAID_ENV"`
	Products    string `json:"products" envconfig:"TALLY_PLAID_PRODUCTS"`
	CountryCode string `json:"country_code" envconfig:"TALLY_PLAID_COUNTRY_CODE"`
}

type PayPalConfig struct {
	ClientID string `json:"client_id" envconfig:"TALLY_PAYPAL_CLIENT_ID"`
	Secret   string `json:"secret" envconfig:"TALLY_PAYPAL_SECRET"`
	Mode     string `json:"mode" envconfig:"TALLY_PAYPAL_MODE"`
}

type SheetsConfig struct {
	SpreadsheetID string `json:"spreadsheet_id" envconfig:"TALLY_SHEETS_SPREADSHEET_ID"`
	AccessToken   string `json:"access_token" envconfig:"TALLY_SHEETS_ACCESS_TOKEN"`
}

type QuickBooksConfig struct {
	ClientID    string `json:"client_id" envconfig:"TALLY_QUICKBOOKS_CLIENT_ID"`
	Secret      string `json:"secret" envconfig:"TALLY_QUICKBOOKS_SECRET"`
	Environment string `json:"environment" envconfig:"TALLY_QUICKBOOKS_ENV"`
	RedirectURI string `json:"redirect_uri" envconfig:"TALLY_QUICKBOOKS_REDIRECT_URI"`
}

type SBALoanConfig struct {
	ClientID string `json:"client_id" envconfig:"TALLY_SBA_CLIENT_ID"`
	Secret   string `json:"secret" envconfig:"TALLY_SBA_SECRET"`
	APIKey   string `json:"api_key" envconfig:"TALLY_SBA_API_KEY"`
}

type ProvidersConfig struct {
	Plaid      PlaidConfig      `json:"plaid"`
	PayPal     PayPalConfig     `json:"paypal"`
	Sheets     SheetsConfig     `json:"sheets"`
	QuickBooks QuickBooksConfig `json:"quickbooks"`
	SBALoan    SBALoanConfig    `json:"sba_loan"`
	// TimeoutSec bounds every outbound provider call so one unresponsive
	// provider cannot stall the sequential sync loop.
	TimeoutSec int `json:"timeout_sec" envconfig:"TALLY_PROVIDER_TIMEOUT_SEC"`
}

type SyncConfig struct {
	WindowDays    int     `json:"window_days" envconfig:"TALLY_SYNC_WINDOW_DAYS"`
	IntervalMins  int     `json:"interval_mins" envconfig:"TALLY_SYNC_INTERVAL_MINS"`
	MonthlyBudget float64 `json:"monthly_budget" envconfig:"TALLY_MONTHLY_BUDGET"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"TALLY_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"TALLY_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"TALLY_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"TALLY_PROJECT_NAME"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Providers    ProvidersConfig  `json:"providers"`
	Sync         SyncConfig       `json:"sync"`
	RateLimit    RateLimitConfig  `json:"rate_limit"`
	Notification Notification     `json:"notification"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("tally", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called tally.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Tally Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Sync.WindowDays <= 0 {
		cnf.Sync.WindowDays = DEFAULT_SYNC_WINDOW_DAYS
	}

	if cnf.Sync.IntervalMins <= 0 {
		cnf.Sync.IntervalMins = 30
	}

	if cnf.Providers.TimeoutSec <= 0 {
		cnf.Providers.TimeoutSec = 30
	}

	if cnf.Providers.Plaid.Environment == "" {
		cnf.Providers.Plaid.Environment = "sandbox"
	}

	if cnf.Providers.QuickBooks.Environment == "" {
		cnf.Providers.QuickBooks.Environment = "sandbox"
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
