package testutil

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// TestLabel marks containers started by tests. Its value is the test name.
const TestLabel = "bindery-test"

// TestingT is the part of testing.T the docker helpers need.
type TestingT interface {
	Name() string
	Cleanup(func())
	Logf(format string, args ...any)
	Skipf(format string, args ...any)
	Helper()
}

// dockerAvailable returns a connected client, or the reason there is none.
func dockerAvailable(ctx context.Context) (*client.Client, error) {
	if os.Getenv("BINDERY_SKIP_DOCKER") != "" {
		return nil, fmt.Errorf("BINDERY_SKIP_DOCKER set")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client unavailable: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := cli.Ping(pingCtx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("docker is not running: %w", err)
	}
	return cli, nil
}

// DockerClient returns a client for tests that need a daemon, skipping the
// test when none is reachable. Containers carrying this test's label are
// removed when the test ends.
func DockerClient(t TestingT) *client.Client {
	t.Helper()
	cli, err := dockerAvailable(context.Background())
	if err != nil {
		t.Skipf("%v", err)
	}
	t.Cleanup(func() {
		defer cli.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := removeLabeled(ctx, cli, TestLabel+"="+t.Name())
		if err != nil {
			t.Logf("container cleanup: %v", err)
		} else if n > 0 {
			t.Logf("removed %d test container(s)", n)
		}
	})
	return cli
}

// SweepTestContainers removes containers left by interrupted runs of any
// test. It does nothing when docker is unavailable.
func SweepTestContainers(ctx context.Context) (int, error) {
	cli, err := dockerAvailable(ctx)
	if err != nil {
		return 0, nil
	}
	defer cli.Close()
	return removeLabeled(ctx, cli, TestLabel)
}

// removeLabeled force-removes every container matching the label selector
// ("key" or "key=value").
func removeLabeled(ctx context.Context, cli *client.Client, selector string) (int, error) {
	list, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", selector)),
	})
	if err != nil {
		return 0, fmt.Errorf("list containers: %w", err)
	}
	removed := 0
	for _, c := range list {
		if err := cli.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
			return removed, fmt.Errorf("remove container %s: %w", c.ID[:12], err)
		}
		removed++
	}
	return removed, nil
}

// UniqueContainerName returns bindery-test-<prefix>-<test>-<random>.
func UniqueContainerName(t TestingT, prefix string) string {
	t.Helper()
	suffix := make([]byte, 4)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("%s-%s-%s-%s", TestLabel, prefix, containerSafe(t.Name()), hex.EncodeToString(suffix))
}

// ContainerLabels tags a container so DockerClient's cleanup finds it.
func ContainerLabels(t TestingT) map[string]string {
	return map[string]string{TestLabel: t.Name()}
}

// containerSafe keeps letters and digits, maps separators to '-' and
// truncates to 30 bytes.
func containerSafe(name string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '/' || r == '_' || r == '-':
			return '-'
		}
		return -1
	}, name)
	if len(s) > 30 {
		s = s[:30]
	}
	return s
}
