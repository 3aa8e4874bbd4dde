package appbuilder

import (
	"fmt"

	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/logger"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/rabbitmq"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/rest"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/utilities"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type AppConfig interface {
	GetLoggerConfig() logger.LoggerConfig
	GetRabbitmqConfig() rabbitmq.RabbitmqConfig
	GetRestApiPort() uint16
}

type AppBuilder[T utilities.JsonConfigObj[U], U AppConfig] struct {
	Logger     *logger.Logger
	Config     U
	Conn       *amqp.Connection
	Publishers *rabbitmq.PublisherRegistry
	Consumers  *rabbitmq.ConsumerRegistry

	workerServices []WorkerService
	middlewares    []rest.Middleware
	routes         []rest.Route
	engine         *gin.Engine
	closers        []func() error
}

type AppBuilderInterface[T utilities.JsonConfigObj[U], U AppConfig] interface {
	InitLogger(loggerArgs logger.GlobalLoggerConfig) AppBuilderInterface[T, U]
	ResolveEnvironment() AppBuilderInterface[T, U]
	LoadConfig(configPath string) AppBuilderInterface[T, U]
	WithOption(option func(a *AppBuilder[T, U])) AppBuilderInterface[T, U]
	InitRabbitmqConnection() AppBuilderInterface[T, U]
	InitRabbitmqRegistries() AppBuilderInterface[T, U]
	AddWorkerServices(workerServices ...WorkerService) AppBuilderInterface[T, U]
	AddGinMiddleware(middlewares ...rest.Middleware) AppBuilderInterface[T, U]
	AddGinRoutes(routes ...rest.Route) AppBuilderInterface[T, U]
	InitGinRouter() AppBuilderInterface[T, U]
	Build() ApplicationInterface
}

func New[T utilities.JsonConfigObj[U], U AppConfig]() AppBuilderInterface[T, U] {
	return &AppBuilder[T, U]{}
}

func (a *AppBuilder[T, U]) InitLogger(loggerArgs logger.GlobalLoggerConfig) AppBuilderInterface[T, U] {
	logger.InitDefaultLogger(loggerArgs)
	a.Logger = logger.Default()
	a.Logger.Info("Logger initialized")

	return a
}

// ResolveEnvironment loads a .env file when present; real environment variables win.
func (a *AppBuilder[T, U]) ResolveEnvironment() AppBuilderInterface[T, U] {
	if err := godotenv.Load(); err != nil {
		a.Logger.Debug("No .env file loaded")
	}
	return a
}

func (a *AppBuilder[T, U]) LoadConfig(filePath string) AppBuilderInterface[T, U] {
	a.Logger.Infof("Preparing to load config from %s ...", filePath)
	config, err := utilities.ReadConfig[T, U](filePath)
	if err != nil {
		a.Logger.Panic(err, "Failed to load config")
	}

	a.Config = config
	if level := config.GetLoggerConfig().LogLevel; level != zerolog.NoLevel {
		a.Logger.WithLevel(level)
	}
	a.Logger.Info("Config successfully loaded.")
	return a
}

func (a *AppBuilder[T, U]) WithOption(option func(a *AppBuilder[T, U])) AppBuilderInterface[T, U] {
	option(a)
	return a
}

func (a *AppBuilder[T, U]) InitRabbitmqConnection() AppBuilderInterface[T, U] {
	rabbitmqConfig := a.Config.GetRabbitmqConfig()
	if !rabbitmqConfig.Enabled() {
		a.Logger.Warn("Rabbitmq not configured, skipping connection")
		return a
	}

	a.Logger.Info("Preparing to connect to Rabbitmq server...")
	conn, err := rabbitmq.ConnectToRabbitmq(rabbitmqConfig)
	if err != nil {
		a.Logger.Panic(err, "Could not connect to Rabbitmq")
	}

	a.Conn = conn
	a.OnClose(conn.Close)
	a.Logger.Info("Connection with Rabbitmq server established")

	return a
}

func (a *AppBuilder[T, U]) InitRabbitmqRegistries() AppBuilderInterface[T, U] {
	if a.Conn == nil {
		a.Publishers = rabbitmq.NewPublisherRegistry()
		a.Consumers = rabbitmq.NewConsumerRegistry()
		return a
	}

	a.Logger.Info("Initializing Rabbitmq registries from config")
	rabbitmqConf := a.Config.GetRabbitmqConfig()

	consumers, err := rabbitmq.InitializeConsumerRegistry(a.Conn, rabbitmqConf.ConsumersConfig)
	if err != nil {
		a.Logger.Panic(err, "Could not initialize consumer registry")
	}
	publishers, err := rabbitmq.InitializePublisherRegistry(a.Conn, rabbitmqConf.PublishersConfig)
	if err != nil {
		a.Logger.Panic(err, "Could not initialize publisher registry")
	}

	a.Consumers = consumers
	a.Publishers = publishers
	a.Logger.Info("Successfully initialized Rabbitmq registries from config")

	return a
}

func (a *AppBuilder[T, U]) AddWorkerServices(workerServices ...WorkerService) AppBuilderInterface[T, U] {
	a.Logger.Info("Adding Worker Services to Application...")
	for _, ws := range workerServices {
		if ws != nil {
			a.workerServices = append(a.workerServices, ws)
		}
	}
	return a
}

func (a *AppBuilder[T, U]) AddGinMiddleware(middlewares ...rest.Middleware) AppBuilderInterface[T, U] {
	a.middlewares = append(a.middlewares, middlewares...)
	return a
}

func (a *AppBuilder[T, U]) AddGinRoutes(routes ...rest.Route) AppBuilderInterface[T, U] {
	a.Logger.Info("Adding Gin REST API routes to Application...")
	a.routes = append(a.routes, routes...)
	return a
}

// OnClose registers a function run during shutdown, in reverse order of registration.
func (a *AppBuilder[T, U]) OnClose(closer func() error) {
	a.closers = append(a.closers, closer)
}

func (a *AppBuilder[T, U]) InitGinRouter() AppBuilderInterface[T, U] {
	a.Logger.Info("Initializing Gin Router...")
	router := gin.New()
	router.Use(gin.Recovery())

	for _, m := range a.middlewares {
		if m.Group == rest.GlobalGroup {
			router.Use(m.Handler)
		}
	}

	a.Logger.Info("Registering REST API routes...")
	rest.Register(router, a.middlewares, a.routes...)

	a.engine = router
	a.Logger.Infof("Successfully registered %d REST API routes.", len(a.routes))
	return a
}

func (a *AppBuilder[T, U]) Build() ApplicationInterface {
	return &Application{
		Logger:         a.Logger,
		Addr:           fmt.Sprintf("0.0.0.0:%d", a.Config.GetRestApiPort()),
		WorkerServices: a.workerServices,
		Engine:         a.engine,
		Closers:        a.closers,
	}
}
