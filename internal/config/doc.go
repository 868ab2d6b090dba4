// Package config provides configuration loading for the uploader server.
//
// The configuration is stored in uploader.json. Every field has a default,
// so the file is optional, and UPLOADER_* environment variables override
// whatever it sets. A .env file is read into the environment first when
// present.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "host": "",
//	    "port": 8080,
//	    "devMode": false
//	  },
//	  "staging": {
//	    "backend": "s3",
//	    "bucket": "uploads-staging",
//	    "prefix": "staging/",
//	    "region": "eu-west-1",
//	    "expiry": "1h"
//	  },
//	  "deletion": {
//	    "timeout": "30s",
//	    "retries": 2
//	  },
//	  "session": {
//	    "readTimeout": "60s",
//	    "eventRate": 20,
//	    "pageTTL": "30m"
//	  },
//	  "page": "./templates/new-post.html"
//	}
//
// # Environment
//
//	UPLOADER_HOST, UPLOADER_PORT, UPLOADER_DEV, UPLOADER_PAGE
//	UPLOADER_STAGING_BACKEND, UPLOADER_STAGING_DIR, UPLOADER_MAX_FILE_SIZE
//	UPLOADER_S3_BUCKET, UPLOADER_S3_PREFIX, UPLOADER_S3_REGION
//	UPLOADER_DELETE_TIMEOUT, UPLOADER_DELETE_RETRIES
//	UPLOADER_READ_TIMEOUT, UPLOADER_WRITE_TIMEOUT, UPLOADER_EVENT_RATE
//	UPLOADER_PREVIEW_TTL, UPLOADER_PAGE_TTL
//
// # Usage
//
//	if err := config.LoadEnv(); err != nil {
//	    log.Fatal(err)
//	}
//	cfg, err := config.LoadOrNew(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.ApplyEnv(); err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
