package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Republish retained discovery/state, every 6 hours
	CronScheduleRepublish string `env:"CRON_SCHEDULE_REPUBLISH" envDefault:"0 0 */6 * * *"`
}
