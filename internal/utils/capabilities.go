package utils

import (
	"fmt"

	"github.com/syndtr/gocapability/capability"
)

// EnsureNetRaw verifies the process can open raw sockets, which the ICMP
// probe kind requires. HTTP probing needs no capability.
func EnsureNetRaw() error {
	return ensure(capability.CAP_NET_RAW)
}

func ensure(capabilities ...capability.Cap) error {
	caps, err := capability.NewPid2(0) // 0 == current process
	if err != nil {
		return err
	}
	if err = caps.Load(); err != nil {
		return err
	}

	var missing []string
	for _, c := range capabilities {
		if !caps.Get(capability.EFFECTIVE, c) {
			missing = append(missing, c.String())
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required capabilities are missing: %v", missing)
	}
	return nil
}
