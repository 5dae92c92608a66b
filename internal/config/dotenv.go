package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Файлы окружения в порядке приоритета: godotenv не перезаписывает уже заданные переменные,
// поэтому .env.local, загруженный первым, побеждает .env.
var dotEnvFiles = []string{".env.local", ".env"}

// LoadDotEnvUp walks from the working directory up to maxDepth parents and loads the env
// files of the first directory that has any. It returns the loaded paths; none is not an error.
func LoadDotEnvUp(maxDepth int) []string {
	if maxDepth <= 0 {
		maxDepth = 6
	}
	dir, err := os.Getwd()
	if err != nil {
		return nil
	}
	for i := 0; i <= maxDepth; i++ {
		if found := existing(dir); len(found) > 0 {
			if err := godotenv.Load(found...); err != nil {
				return nil
			}
			return found
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil
}

func existing(dir string) []string {
	var out []string
	for _, name := range dotEnvFiles {
		p := filepath.Join(dir, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			out = append(out, p)
		}
	}
	return out
}
