package app

import (
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const defaultConfig = `# Earthquake DataStore Updater

#################################### MAIN #####################################

[main]

#
# Address of the CKAN instance, e.g. "https://demo.ckan.org".
#
ckan_url = ""

#
# CKAN API key of a user allowed to create datasets.
#
api_key = ""

#
# Identifier of the DataStore resource. It is printed by the setup command and
# it is required by update and status.
#
resource_id = ""

################################## LOGGING ####################################

[logging]

#
# Logging verbosity level.
# Supported values: "DEBUG", "INFO", "WARN", "ERROR", "FATAL" or "PANIC".
#
level = "INFO"

#################################### FEED #####################################

[feed]

#
# USGS summary feeds. File paths and file:// URLs are accepted too.
#
past_day_url = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson"
past_hour_url = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_hour.geojson"

#
# Time limit of each request.
#
timeout = "30s"

#
# Number of times a failed request is retried with exponential backoff.
# Requests are not retried unless this is set.
#
retries = 0

#
# User-Agent header, defaults to "earthquake-datastore-updater/<version>".
#
user_agent = ""

################################### CATALOG ###################################

[catalog]

#
# Time limit of each request.
#
timeout = "60s"

#
# Metadata of the dataset and the resource created by setup.
#
dataset_name = "ngds-earthquakes-data"
dataset_title = "NGDS Earthquakes Data"
dataset_notes = "Earthquake data from the USGS feeds, updated regularly."
resource_name = "Earthquake data"
resource_format = "csv"

################################### ARCHIVE ###################################

[archive]

#
# Keep a copy of every feed document fetched, e.g. "s3://bucket/earthquakes".
# Disabled when empty.
#
location = ""

profile = ""
endpoint = ""

################################### METRICS ###################################

[metrics]

#
# Prometheus Pushgateway that receives the metrics of every run, e.g.
# "http://localhost:9091". Disabled when empty.
#
pushgateway_url = ""
job = "earthquake_datastore_updater"
`

type Config struct {
	v *viper.Viper

	Main struct {
		CKANURL    string `mapstructure:"ckan_url"`
		APIKey     string `mapstructure:"api_key"`
		ResourceID string `mapstructure:"resource_id"`
	} `mapstructure:"main"`

	Logging struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`

	Feed struct {
		PastDayURL  string        `mapstructure:"past_day_url"`
		PastHourURL string        `mapstructure:"past_hour_url"`
		Timeout     time.Duration `mapstructure:"timeout"`
		Retries     uint64        `mapstructure:"retries"`
		UserAgent   string        `mapstructure:"user_agent"`
	} `mapstructure:"feed"`

	Catalog struct {
		Timeout        time.Duration `mapstructure:"timeout"`
		DatasetName    string        `mapstructure:"dataset_name"`
		DatasetTitle   string        `mapstructure:"dataset_title"`
		DatasetNotes   string        `mapstructure:"dataset_notes"`
		ResourceName   string        `mapstructure:"resource_name"`
		ResourceFormat string        `mapstructure:"resource_format"`
	} `mapstructure:"catalog"`

	Archive struct {
		Location string `mapstructure:"location"`
		Profile  string `mapstructure:"profile"`
		Endpoint string `mapstructure:"endpoint"`
	} `mapstructure:"archive"`

	Metrics struct {
		PushgatewayURL string `mapstructure:"pushgateway_url"`
		Job            string `mapstructure:"job"`
	} `mapstructure:"metrics"`
}

// Validate checks the options shared by all the commands. Options required by
// a single command, e.g. resource_id, are checked when the command runs.
func (c Config) Validate() error {
	if c.Logging.Level != "" {
		if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
			return errors.Wrap(err, "logging.level")
		}
	}
	if c.Feed.Timeout <= 0 {
		return errors.New("feed.timeout must be a positive duration")
	}
	if c.Catalog.Timeout <= 0 {
		return errors.New("catalog.timeout must be a positive duration")
	}
	if c.Metrics.PushgatewayURL != "" && c.Metrics.Job == "" {
		return errors.New("metrics.job is required when metrics.pushgateway_url is set")
	}
	return nil
}

const maskedSecret = "********"

// String returns the configuration in TOML. The API key is masked.
func (c Config) String() string {
	settings := c.v.AllSettings()
	if section, ok := settings["main"].(map[string]interface{}); ok {
		if key, _ := section["api_key"].(string); key != "" {
			section["api_key"] = maskedSecret
		}
	}
	tree, err := toml.TreeFromMap(settings)
	if err != nil {
		return err.Error()
	}
	return tree.String()
}

func loadConfig(c *Config) error {
	v := viper.New()

	v.SetEnvPrefix("EARTHQUAKE_DATASTORE_UPDATER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("earthquake-datastore-updater")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/")
	v.AddConfigPath("/etc/earthquake-datastore-updater/")

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read our default configuration.
	if err := v.ReadConfig(strings.NewReader(defaultConfig)); err != nil {
		panic(err) // Not in the user path.
	}

	// Include configuration file provided by the user.
	if err := v.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errors.Wrap(err, "configuration file cannot be read")
		}
	}

	if err := v.Unmarshal(c); err != nil {
		return errors.Wrap(err, "configuration unmarshaling failed")
	}

	if err := c.Validate(); err != nil {
		return errors.Wrap(err, "config did not pass validation")
	}

	c.v = v

	return nil
}
