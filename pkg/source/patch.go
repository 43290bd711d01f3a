package source

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/meteoswiss/claw-release-tools/pkg/logging"
)

// CompilerVar is renamed to CompilerVarNew, which the configure step sets explicitly.
const (
	CompilerVar    = "${CMAKE_Fortran_COMPILER}"
	CompilerVarNew = "${CLAW_Fortran_COMPILER}"
)

// PatchedFiles are the files (relative to the source root) that reference CompilerVar.
var PatchedFiles = []string{
	"CMakeLists.txt",
	"properties.cmake",
	filepath.Join("cmake", "omni_compiler.cmake"),
}

// Patch rewrites PatchedFiles in srcDir and returns the number of replacements per file.
func Patch(ctx context.Context, srcDir string) (map[string]int, error) {
	counts := make(map[string]int, len(PatchedFiles))
	for _, name := range PatchedFiles {
		path := filepath.Join(srcDir, name)
		n, err := patchFile(path, CompilerVar, CompilerVarNew)
		if err != nil {
			return counts, err
		}

		logging.Log(ctx).Debug().Str("path", path).Msgf("Replaced %d occurrence(s) in %s", n, path)
		counts[name] = n
	}

	return counts, nil
}

func patchFile(path, old, replacement string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, eris.Wrapf(err, "Could not find %s", path)
	}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return 0, eris.Wrapf(err, "Failed to read %s", path)
	}

	content := string(data)
	n := strings.Count(content, old)
	content = strings.ReplaceAll(content, old, replacement)

	tmp, err := ioutil.TempFile(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, eris.Wrapf(err, "Failed to create temporary file for %s", path)
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.WriteString(content)
	if err == nil {
		err = tmp.Chmod(info.Mode().Perm())
	}
	if cErr := tmp.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		return 0, eris.Wrapf(err, "Failed to write %s", tmp.Name())
	}

	err = os.Rename(tmp.Name(), path)
	if err != nil {
		return 0, eris.Wrapf(err, "Failed to replace %s", path)
	}

	return n, nil
}
