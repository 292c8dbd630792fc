package autoload

// Import all middleware subpackages for side-effect registration.
import (
	_ "ember/middlewares/greeting"
	_ "ember/middlewares/localcache"
	_ "ember/middlewares/tokenbudget"
)
