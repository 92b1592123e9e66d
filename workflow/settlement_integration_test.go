package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stitchline/store_backend/config"
	"github.com/stitchline/store_backend/models"
)

// Runs settlement against MySQL row locks and the Redis lock.
func TestConcurrentOrdersShareAllocationsOnMySQL(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}
	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })
	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "store_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	t.Cleanup(func() { config.SetRedisDB(nil) })
	if err := models.AutoMigrate(config.GetDB()); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	db := config.GetDB()

	inv := mustInvestor(t, db, "Mira")
	p := mustProduct(t, db, "Kaftan")
	alloc := mustAllocation(t, db, inv.ID, p.ID, nil, 5, "6", 0)
	orders := []*models.Order{
		mustOrder(t, db, item(p.ID, 4, "10")),
		mustOrder(t, db, item(p.ID, 4, "10")),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error
	for i := 0; i < 6; i++ {
		order := orders[i%2]
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := CompleteOrderWithLock(ctx, db, quietLogger(), order.ID)
			if err != nil && !errors.Is(err, models.ErrOrderAlreadyCompleted) {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	got := reloadAllocation(t, db, alloc.ID)
	if got.QuantitySold != 5 || got.QuantityRemaining != 0 {
		t.Fatalf("allocation = %+v", got)
	}
	if n := countRows(t, db, &models.ProfitDistribution{}, ""); n != 2 {
		t.Fatalf("profit_distributions=%d want 2", n)
	}
	balances := reloadInvestor(t, db, inv.ID)
	if !balances.CashBalance.Equal(dec("30")) || !balances.ProfitBalance.Equal(dec("10")) {
		t.Fatalf("balances = %+v", balances)
	}

	_, issues, err := RunAllocationReconciliation(ctx, db, quietLogger())
	if err != nil {
		t.Fatalf("RunAllocationReconciliation: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("issues = %+v", issues)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("store-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := dockerRun("exec", name, "redis-cli", "ping"); err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("store-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=store_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent"); err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// e.g. "127.0.0.1:49154\n"
	m := regexp.MustCompile(`:(\d+)`).FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	b, err := exec.Command("docker", args...).CombinedOutput()
	return string(b), err
}
