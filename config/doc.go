// Package config loads service configuration with Viper.
//
// Values are layered in this order, later sources winning:
//
//  1. a config.yml found under ./cmd/<service>/, ./config/ or the working directory
//  2. a .env file loaded with godotenv
//  3. environment variables carrying the service prefix, e.g.
//     TRANSCRIBE_SAGA_JOB_TIMEOUT=2h for saga.job_timeout
//
// # Usage
//
//	var cfg AppConfig
//	if err := config.LoadConfig("transcribe", &cfg); err != nil {
//	    return err
//	}
//	if err := config.Prepare(&cfg); err != nil {
//	    return err
//	}
package config
