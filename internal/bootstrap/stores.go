package bootstrap

import (
	"github.com/eleven-am/guild-backend/internal/friend"
	"github.com/eleven-am/guild-backend/internal/login"
	"github.com/eleven-am/guild-backend/internal/user"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideUserStore(db *gorm.DB) *user.Store {
	return user.NewStore(db)
}

func ProvideLoginStore(db *gorm.DB) *login.Store {
	return login.NewStore(db)
}

func ProvideFriendStore(db *gorm.DB) *friend.Store {
	return friend.NewStore(db)
}

// RunMigrations creates tables in dependency order: logins and friend edges
// reference users.
func RunMigrations(userStore *user.Store, loginStore *login.Store, friendStore *friend.Store) error {
	if err := userStore.Migrate(); err != nil {
		return err
	}
	if err := loginStore.Migrate(); err != nil {
		return err
	}
	return friendStore.Migrate()
}

var StoresModule = fx.Options(
	fx.Provide(
		ProvideUserStore,
		ProvideLoginStore,
		ProvideFriendStore,
	),
	fx.Invoke(RunMigrations),
)
