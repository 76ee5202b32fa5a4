package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "frostctl", "device":
		return deviceTemplate, nil
	case "bridge":
		return bridgeTemplate, nil
	case "ceremony":
		return ceremonyTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const deviceTemplate = `device_addr = "127.0.0.1:9999"
generation = "paged"
path = "m/44'/1338'/0'"
chunk_size = 250
dial_timeout = "5s"
dial_attempts = 3
read_timeout = "2m"
write_timeout = "10s"
log_level = "info"
`

const bridgeTemplate = `name = "frostctl"
addr = "127.0.0.1:9400"
cors_origins = ["http://localhost:3000"]
write = false
token = ""
`

const ceremonyTemplate = `index = 0
min_signers = 2
self = ""
participants = []

round1_public = []
round1_secret = ""
round2_public = []
round2_secret = ""
gsk_shares = []

signers = []
tx_hash = ""
pk_randomness = ""
signing_package = ""
nonces = ""
`
