package buildings

import (
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// steppingClock advances by one second per call so that creation order is observable.
type steppingClock struct {
	mu      sync.Mutex
	current time.Time
}

func newSteppingClock(start int64) *steppingClock {
	return &steppingClock{current: time.Unix(start, 0).UTC()}
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(time.Second)
	return c.current
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:buildings_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Building{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	service, err := NewService(ServiceConfig{
		Database: db,
		Clock:    newSteppingClock(1700000000).Now,
	})
	if err != nil {
		t.Fatalf("failed to construct buildings service: %v", err)
	}
	return service, db
}

func floatPointer(value float64) *float64 {
	return &value
}

func validRequest(id, designer string) CreateRequest {
	return CreateRequest{
		ID:            id,
		Title:         "Haus " + id,
		Designer:      designer,
		Year:          "1929",
		Neighbourhood: "mitte",
		Era:           "bauhaus",
		XCoordinate:   floatPointer(13.405),
		YCoordinate:   floatPointer(52.52),
	}
}
