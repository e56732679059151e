// Package config loads the configuration shared by the represent command line
// tool and the annotation service.
//
// Configuration is layered: Default supplies a runnable base, each file added
// to a Loader is merged over it (maps merge key by key, lists are replaced),
// and REPRESENT_* environment variables are applied last.
//
//	loader := config.NewLoader()
//	loader.AddLayer("config/base.yaml")
//	loader.AddLayer("config/production.yaml")
//	cfg, err := loader.Load()
//
// Files may be JSON (.json) or YAML (.yaml, .yml). Durations accept Go
// duration strings such as "2s". Files larger than 10MB, non-regular files and
// relative paths escaping the working directory are refused.
//
// Environment overrides:
//
//	REPRESENT_LOG_LEVEL              log.level
//	REPRESENT_LOG_FORMAT             log.format
//	REPRESENT_WORKERS                workers
//	REPRESENT_STRATEGY               engine.strategy
//	REPRESENT_DATABASES              engine.databases (comma separated)
//	REPRESENT_MAX_DOMAINS_PER_GROUP  engine.max_domains_per_group
//	REPRESENT_OVERLAP_THRESHOLD      engine.overlap_threshold
//	REPRESENT_NATS_URLS              nats.urls (comma separated)
//	REPRESENT_NATS_USERNAME          nats.username
//	REPRESENT_NATS_PASSWORD          nats.password
//	REPRESENT_NATS_TOKEN             nats.token
//	REPRESENT_NATS_INPUT_SUBJECT     nats.input_subject
//	REPRESENT_NATS_OUTPUT_SUBJECT    nats.output_subject
//	REPRESENT_NATS_QUEUE             nats.queue
//	REPRESENT_METRICS_PORT           metrics.port
//
// Load failures are classified fatal; a configuration that fails Validate
// wraps errors.ErrInvalidConfig.
package config
