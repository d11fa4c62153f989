//go:build integration

package integration

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	postgresImage = "postgres:16-alpine"
	postgresUser  = "clinic"
	postgresPass  = "clinic"
	postgresDB    = "clinictest"
)

func docker(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "docker", args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("docker %s: %w\n%s", args[0], err, out)
	}
	return strings.TrimSpace(string(out)), nil
}

// startPostgres runs a throwaway Postgres container through the Docker CLI,
// letting Docker pick the host port, and returns a DSN and a cleanup func.
func startPostgres(ctx context.Context) (string, func(), error) {
	name := "clinic-it-" + uuid.NewString()[:8]
	if _, err := docker(ctx, "run", "-d", "--rm",
		"--name", name,
		"-p", "127.0.0.1::5432",
		"-e", "POSTGRES_USER="+postgresUser,
		"-e", "POSTGRES_PASSWORD="+postgresPass,
		"-e", "POSTGRES_DB="+postgresDB,
		postgresImage,
	); err != nil {
		return "", nil, err
	}
	cleanup := func() {
		_, _ = docker(context.Background(), "rm", "-f", name)
	}

	// "127.0.0.1:49153"
	hostPort, err := docker(ctx, "port", name, "5432/tcp")
	if err != nil {
		cleanup()
		return "", nil, err
	}
	hostPort = strings.SplitN(hostPort, "\n", 2)[0]

	dsn := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", postgresUser, postgresPass, hostPort, postgresDB)
	if err := awaitPostgres(ctx, dsn, 60*time.Second); err != nil {
		cleanup()
		return "", nil, err
	}
	return dsn, cleanup, nil
}

// awaitPostgres polls until the server answers SELECT 1 or limit passes.
func awaitPostgres(ctx context.Context, dsn string, limit time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()

	var lastErr error
	for {
		pool, err := pgxpool.New(ctx, dsn)
		if err == nil {
			var one int
			err = pool.QueryRow(ctx, "SELECT 1").Scan(&one)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres not ready after %s: %v", limit, lastErr)
		case <-tick.C:
		}
	}
}
