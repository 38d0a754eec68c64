// defaults.go default configuration values for vidrename
package conf

import (
	"github.com/spf13/viper"
)

// DefaultPrompt is the built-in instruction sent to the vision service when
// no prompt is configured. It asks for a short descriptive Chinese filename
// with nothing else in the reply.
const DefaultPrompt = "请根据这些视频截图生成一个简短的中文文件名（2到8个字），只返回文件名本身，" +
	"不要包含标点、引号或任何解释。例如：海边日落、生日聚会、小猫玩球"

// setDefaultConfig sets the default values for the configuration.
func setDefaultConfig() {
	// Main configuration
	viper.SetDefault("debug", false)
	viper.SetDefault("main.name", "vidrename")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/vidrename.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 10*1024*1024)
	viper.SetDefault("main.log.rotationday", "Sunday")

	// Scanner configuration
	viper.SetDefault("scanner.extensions", []string{
		".mp4", ".avi", ".mkv", ".mov", ".wmv", ".flv", ".ts", ".m4a",
	})
	viper.SetDefault("scanner.minsize", 1*1024*1024)
	viper.SetDefault("scanner.minhexlength", 20)

	// Sampler configuration
	viper.SetDefault("sampler.count", 3)
	viper.SetDefault("sampler.ffmpegpath", "ffmpeg")
	viper.SetDefault("sampler.ffprobepath", "ffprobe")
	viper.SetDefault("sampler.maxwidth", 640)
	viper.SetDefault("sampler.maxheight", 480)
	viper.SetDefault("sampler.quality", 4)
	viper.SetDefault("sampler.edgemargin", 0.02)

	// Classifier configuration
	viper.SetDefault("classifier.apiurl", "http://localhost:3001/proxy/free")
	viper.SetDefault("classifier.model", "gemini-2.5-flash")
	viper.SetDefault("classifier.prompt", DefaultPrompt)
	viper.SetDefault("classifier.timeout", "30s")
	viper.SetDefault("classifier.ratelimit", 0)
	viper.SetDefault("classifier.cache.enabled", true)
	viper.SetDefault("classifier.cache.ttl", "168h")
	viper.SetDefault("classifier.cache.path", "")

	// Naming configuration
	viper.SetDefault("naming.maxlength", 60)
	viper.SetDefault("naming.fallback", "未命名视频")

	// Scheduler configuration
	viper.SetDefault("scheduler.maxworkers", 2)
	viper.SetDefault("scheduler.maxretries", 3)
	viper.SetDefault("scheduler.backoffbase", "1s")
	viper.SetDefault("scheduler.backoffmax", "10s")

	// Journal configuration
	viper.SetDefault("journal.enabled", true)
	viper.SetDefault("journal.path", "")

	// MQTT output configuration
	viper.SetDefault("output.mqtt.enabled", false)
	viper.SetDefault("output.mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("output.mqtt.topic", "vidrename/results")
	viper.SetDefault("output.mqtt.username", "")
	viper.SetDefault("output.mqtt.password", "")
	viper.SetDefault("output.mqtt.passwordfile", "")
	viper.SetDefault("output.mqtt.retain", false)

	// Notification output configuration
	viper.SetDefault("output.notification.enabled", false)
	viper.SetDefault("output.notification.urls", []string{})

	// Telemetry endpoint configuration
	viper.SetDefault("output.telemetry.enabled", false)
	viper.SetDefault("output.telemetry.listen", "localhost:8090")

	// Error tracking configuration, disabled unless explicitly opted in
	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
}
