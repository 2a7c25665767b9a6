//go:build integration

package firestore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/menuslot/api/internal/domain"
	pconfig "github.com/menuslot/api/internal/platform/config"
	pfirestore "github.com/menuslot/api/internal/platform/firestore"
	"github.com/menuslot/api/internal/repositories"
)

const firestoreEmulatorImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:emulators"

func TestCatalogRepositoriesIntegration(t *testing.T) {
	registry := newEmulatorRegistry(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := registry.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	suffix := now.Format("150405")
	restaurant := "rest-" + suffix
	pct := 10.0
	yes := true

	category, err := registry.Categories().Insert(ctx, domain.Category{
		ID: "cat-" + suffix, RestaurantID: restaurant, Name: "Drinks",
		Tax:      domain.TaxRule{Applicable: &yes, Percentage: &pct},
		IsActive: true, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("insert category: %v", err)
	}
	_, err = registry.Categories().Insert(ctx, domain.Category{
		ID: "cat-dup-" + suffix, RestaurantID: restaurant, Name: "Drinks", IsActive: true, CreatedAt: now, UpdatedAt: now,
	})
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.IsConflict() {
		t.Fatalf("expected name conflict, got %v", err)
	}

	fetched, err := registry.Categories().FindByID(ctx, category.ID)
	if err != nil {
		t.Fatalf("find category: %v", err)
	}
	if fetched.Tax.Percentage == nil || *fetched.Tax.Percentage != 10 {
		t.Fatalf("expected tax percentage to round trip, got %+v", fetched.Tax)
	}

	for i, name := range []string{"Espresso", "Iced Latte", "Green Tea"} {
		description := fmt.Sprintf("%s of the day", strings.ToLower(name))
		_, err := registry.Items().Insert(ctx, domain.Item{
			ID: fmt.Sprintf("item-%s-%d", suffix, i), Name: name, Description: &description, IsActive: true,
			Parent:  domain.ItemParent{Kind: domain.ParentCategory, ID: category.ID},
			Pricing: domain.StaticPricing{Price: float64(3 + i)},
			Availability: domain.Availability{
				Days:  []time.Weekday{time.Monday},
				Slots: []domain.TimeSlot{{Start: domain.MustClockTime("09:00"), End: domain.MustClockTime("12:00")}},
			},
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
			UpdatedAt: now.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("insert item %s: %v", name, err)
		}
	}

	page, err := registry.Items().List(ctx, repositories.ItemListFilter{
		CategoryID: category.ID,
		ActiveOnly: true,
		Search:     "LATTE",
		Options:    domain.ListOptions{Limit: 10},
	})
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if page.Total != 1 || page.Items[0].Name != "Iced Latte" {
		t.Fatalf("expected search to match Iced Latte, got %+v", page)
	}
	if !page.Items[0].Bookable() {
		t.Fatalf("expected availability to round trip")
	}

	page, err = registry.Items().List(ctx, repositories.ItemListFilter{
		CategoryID: category.ID,
		Options:    domain.ListOptions{Page: 2, Limit: 2, Sort: "name", Order: domain.SortAsc},
	})
	if err != nil {
		t.Fatalf("list items page 2: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 1 || page.Items[0].Name != "Iced Latte" {
		t.Fatalf("unexpected second page %+v", page)
	}
}

func TestBookingRepositoryIntegration(t *testing.T) {
	registry := newEmulatorRegistry(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	repo := registry.Bookings()
	itemID := "item-" + time.Now().UTC().Format("150405.000")
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	booking := func(id string, start, end time.Time) domain.Booking {
		return domain.Booking{ID: id, ItemID: itemID, StartTime: start, EndTime: end, CreatedAt: day, UpdatedAt: day}
	}

	if _, err := repo.CreateConfirmed(ctx, booking("b-1", at(10, 0), at(11, 0))); err != nil {
		t.Fatalf("create first booking: %v", err)
	}
	if _, err := repo.CreateConfirmed(ctx, booking("b-2", at(11, 0), at(12, 0))); err != nil {
		t.Fatalf("touching booking must be accepted: %v", err)
	}
	_, err := repo.CreateConfirmed(ctx, booking("b-3", at(10, 30), at(11, 30)))
	var bookingErr *repositories.BookingError
	if !errors.As(err, &bookingErr) || bookingErr.Code != repositories.BookingErrorOverlap {
		t.Fatalf("expected overlap error, got %v", err)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.CreateConfirmed(ctx, booking(fmt.Sprintf("race-%d", i), at(14, 0), at(15, 0)))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if succeeded != 1 {
		t.Fatalf("expected exactly one concurrent booking to win, got %d", succeeded)
	}

	overlapping, err := repo.ListConfirmedOverlapping(ctx, itemID, at(10, 59), at(11, 1))
	if err != nil {
		t.Fatalf("list overlapping: %v", err)
	}
	if len(overlapping) != 2 {
		t.Fatalf("expected two overlapping bookings, got %d", len(overlapping))
	}

	cancelled, err := repo.Cancel(ctx, "b-1", at(9, 0))
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.BookingCancelled {
		t.Fatalf("expected cancelled status, got %s", cancelled.Status)
	}
	if _, err := repo.Cancel(ctx, "b-1", at(9, 0)); !errors.As(err, &bookingErr) || bookingErr.Code != repositories.BookingErrorAlreadyCancelled {
		t.Fatalf("expected already cancelled, got %v", err)
	}
	if _, err := repo.Cancel(ctx, "missing", at(9, 0)); !errors.As(err, &bookingErr) || bookingErr.Code != repositories.BookingErrorNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := repo.CreateConfirmed(ctx, booking("b-4", at(10, 0), at(11, 0))); err != nil {
		t.Fatalf("cancelled interval must be bookable again: %v", err)
	}

	confirmed := domain.BookingConfirmed
	from := at(10, 0)
	list, err := repo.ListByItem(ctx, repositories.BookingListFilter{ItemID: itemID, Status: &confirmed, StartFrom: &from})
	if err != nil {
		t.Fatalf("list by item: %v", err)
	}
	for i := 1; i < len(list); i++ {
		if list[i].StartTime.Before(list[i-1].StartTime) {
			t.Fatalf("expected ascending start times, got %v", list)
		}
	}
	if len(list) != 3 {
		t.Fatalf("expected three confirmed bookings, got %d", len(list))
	}
}

func newEmulatorRegistry(t *testing.T) *Registry {
	t.Helper()
	endpoint := strings.TrimSpace(os.Getenv("FIRESTORE_EMULATOR_HOST"))
	if endpoint == "" {
		if _, err := exec.LookPath("docker"); err != nil {
			t.Skip("docker not available: " + err.Error())
		}
		ensureDockerDaemon(t)
		port := freePort(t)
		endpoint = fmt.Sprintf("127.0.0.1:%d", port)
		containerID := startFirestoreEmulator(t, port)
		t.Cleanup(func() { stopContainer(containerID) })
		waitForEndpoint(t, endpoint, 30*time.Second)
	}

	provider := pfirestore.NewProvider(pconfig.FirestoreConfig{ProjectID: "menuslot-test", EmulatorHost: endpoint})
	registry, err := NewRegistry(provider)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	t.Cleanup(func() {
		_ = registry.Close(context.Background())
	})
	return registry
}

func freePort(t *testing.T) int {
	t.Helper()
	addr, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unable to allocate port: %v", err)
	}
	defer addr.Close()
	return addr.Addr().(*net.TCPAddr).Port
}

func startFirestoreEmulator(t *testing.T, port int) string {
	t.Helper()
	args := []string{
		"run", "-d", "--rm",
		"-p", fmt.Sprintf("%d:8080", port),
		firestoreEmulatorImage,
		"gcloud", "beta", "emulators", "firestore", "start",
		"--host-port=0.0.0.0:8080",
		"--quiet",
	}
	out, err := exec.Command("docker", args...).CombinedOutput()
	if err != nil {
		t.Fatalf("failed to start firestore emulator: %v - %s", err, string(out))
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		t.Fatalf("docker returned empty container id")
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

func ensureDockerDaemon(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, "docker", "info").Run(); err != nil {
		t.Skipf("docker daemon not available: %v", err)
	}
}

func stopContainer(id string) {
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = exec.CommandContext(ctx, "docker", "stop", id).Run()
}

func waitForEndpoint(t *testing.T, endpoint string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", endpoint, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Fatalf("firestore emulator at %s did not become ready within %s", endpoint, timeout)
}
