// SPDX-License-Identifier: MPL-2.0

package builder

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"birb-cli/internal/seed"
)

// DistfileVerifier answers "is the source present and verified" for a seed.
// It expects the archive named by the seed's SOURCE locator to already sit
// in the distfiles directory; fetching it there is someone else's job.
type DistfileVerifier struct {
	// Dir is the distfiles directory.
	Dir string
}

// Ensure checks that the seed's source archive exists locally and matches
// the declared checksum.
func (v DistfileVerifier) Ensure(sd *seed.Spec) error {
	name := path.Base(sd.Source)
	if name == "." || name == "/" || name == "" {
		return fmt.Errorf("seed %s has no usable source file name in %q", sd.Name, sd.Source)
	}
	archive := filepath.Join(v.Dir, name)

	f, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("source archive %s: %w", archive, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("hash source archive %s: %w", archive, err)
	}
	got := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(got, sd.Checksum) {
		return fmt.Errorf("source archive %s checksum mismatch: have %s, seed declares %s", archive, got, sd.Checksum)
	}
	return nil
}
