package config

import "time"

const (
	defaultPollTimeout    = 30 * time.Second
	defaultPollInterval   = time.Second
	defaultRequestTimeout = 10 * time.Second
	defaultGeminiTimeout  = time.Minute
)

var defaults = map[string]any{
	"logger.level": "info",
	"logger.json":  false,
	"logger.file":  "",

	"telegram.token":           "",
	"telegram.base_url":        "https://api.telegram.org",
	"telegram.master":          "",
	"telegram.enforce_master":  false,
	"telegram.keyring_service": "",
	"telegram.poll_timeout":    defaultPollTimeout,
	"telegram.poll_interval":   defaultPollInterval,
	"telegram.request_timeout": defaultRequestTimeout,

	"messages.start":             "Hi, I am your project bot. How can I help you today?",
	"messages.unseen_characters": "Hmm, unseen characters ...",
	"messages.report":            "I survived {} ",
	"messages.snitch":            "Nada to read, Mate.",
	"messages.unknown_command":   "Sorry, Mate! can't Comprehend",
	"messages.not_master":        "Sorry, Mate! Master commands are not for you.",

	"dialogue.provider":       "static",
	"dialogue.chitchat":       "static",
	"dialogue.resource_path":  "knowledge.db",
	"dialogue.min_score":      0.3,
	"dialogue.fallback_reply": "I am not sure about that one. Try asking me a programming question.",

	"gemini.api_key":            "",
	"gemini.base_url":           "",
	"gemini.model_name":         "gemini-2.0-flash",
	"gemini.temperature":        1.0,
	"gemini.system_instruction": "You are a friendly project assistant chatting on Telegram. Keep replies short and plain.",
	"gemini.max_retries":        2,
	"gemini.retry_delay":        2 * time.Second,
	"gemini.timeout":            defaultGeminiTimeout,

	"scheduler.tasks.heartbeat.enabled":         true,
	"scheduler.tasks.heartbeat.schedule":        "0 */30 * * * *",
	"scheduler.tasks.sql_maintenance.enabled":   false,
	"scheduler.tasks.sql_maintenance.schedule":  "0 0 4 * * *",
	"scheduler.tasks.reload_knowledge.enabled":  false,
	"scheduler.tasks.reload_knowledge.schedule": "0 */10 * * * *",

	"metrics.listen_address": "",
}
