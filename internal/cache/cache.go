package cache

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"vaultdrive/internal/domain"
)

// DefaultTTL ограничивает окно устаревания, если инвалидация была пропущена
const DefaultTTL = 60 * time.Second

// Key идентифицирует закэшированный листинг: кто смотрит и какую папку.
// ParentID == 0 означает корневой уровень.
type Key struct {
	UserID   int64
	ParentID int64
}

func (k Key) String() string {
	return fmt.Sprintf("listing_user_%d_parent_%d", k.UserID, k.ParentID)
}

// ListingCache кэширует содержимое папок. Кэш не является источником
// истины: каждая мутация под родительской папкой обязана вызвать Invalidate.
type ListingCache struct {
	c *gocache.Cache
}

func NewListingCache(ttl time.Duration) *ListingCache {
	return &ListingCache{
		c: gocache.New(ttl, 2*ttl),
	}
}

func (lc *ListingCache) Get(key Key) (*domain.FolderContent, bool) {
	if lc == nil {
		return nil, false
	}
	v, ok := lc.c.Get(key.String())
	if !ok {
		return nil, false
	}
	content, ok := v.(*domain.FolderContent)
	return content, ok
}

func (lc *ListingCache) Set(key Key, content *domain.FolderContent) {
	if lc == nil {
		return
	}
	lc.c.SetDefault(key.String(), content)
}

func (lc *ListingCache) Invalidate(key Key) {
	if lc == nil {
		return
	}
	lc.c.Delete(key.String())
}
