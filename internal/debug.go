package internal

import (
	"fmt"
	"io"
	"os"
	"os/user"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/earthboundkid/versioninfo/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var sensitiveRegex = regexp.MustCompile(`(?i)(PASSWORD|API_KEY|ACCESS_KEY|SECRET|TOKEN)`)

// ConfigureLogging sets the global zerolog level and output format.
// Unknown levels fall back to info.
func ConfigureLogging(w io.Writer, level, format string) {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

func ShowVersion() {
	log.Info().Str("version", versioninfo.Short()).Msg("blurr")
}

// EnvironmentVars logs the BLURR_ settings with secret values masked.
func EnvironmentVars(prefix string) {
	environ := os.Environ()
	sort.Slice(environ, func(i, j int) bool {
		keyI := strings.SplitN(environ[i], "=", 2)[0]
		keyJ := strings.SplitN(environ[j], "=", 2)[0]
		return keyI < keyJ
	})

	for _, entry := range environ {
		key, value, _ := strings.Cut(entry, "=")
		if !strings.HasPrefix(key, prefix+"_") {
			continue
		}
		log.Info().Str("key", key).Str("value", maskValue(key, value)).Msg("environment")
	}
}

func maskValue(key, value string) string {
	if sensitiveRegex.MatchString(key) {
		return "********"
	}
	return value
}

func UserInfo() {
	log.Info().Int("pid", os.Getpid()).Msg("process")
	currentUser, err := user.Current()
	if err != nil {
		log.Warn().Err(err).Msg("error getting current user")
	} else {
		log.Info().
			Str("uid", currentUser.Uid).
			Str("username", currentUser.Username).
			Str("gid", currentUser.Gid).
			Msg("user")
	}
	groups, err := os.Getgroups()
	if err != nil {
		log.Warn().Err(err).Msg("error getting groups")
	} else {
		groupNames := make([]string, 0, len(groups))
		for _, gid := range groups {
			group, err := user.LookupGroupId(strconv.Itoa(gid))
			if err != nil {
				groupNames = append(groupNames, strconv.Itoa(gid)) // Append ID if name lookup fails
			} else {
				groupNames = append(groupNames, fmt.Sprintf("%s(%s)", group.Name, group.Gid))
			}
		}
		log.Info().Strs("groups", groupNames).Msg("groups")
	}
}
