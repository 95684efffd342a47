package http

import (
	"context"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/handler"
	"inkwell/internal/queue"
	"inkwell/internal/redis"
	"inkwell/internal/repository"
	"inkwell/internal/sanitize"
	"inkwell/internal/service"
	"inkwell/internal/worker"
)

// Run wires the whole application together and serves until SIGINT/SIGTERM.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("create redis client: %w", err)
	}
	defer redisClient.Close()

	ctx := context.Background()
	if err := redisClient.Ping(ctx); err != nil {
		return err
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	txRunner := repository.NewTxRunner(db)

	// Infrastructure
	publisher := queue.NewPublisher(redisClient.Client)
	consumer := queue.NewConsumer(redisClient.Client)
	viewCache := cache.NewViewCache(redisClient.Client)
	sanitizer := sanitize.NewHTMLSanitizer()

	// Services
	userService := service.NewUserService(userRepo)
	authService := service.NewAuthService(refreshTokenRepo, cfg)
	postService := service.NewPostService(postRepo, userRepo, commentRepo, likeRepo, categoryRepo, txRunner, sanitizer, publisher, viewCache)
	commentService := service.NewCommentService(commentRepo, postRepo, userRepo, likeRepo, txRunner, sanitizer, publisher)
	likeService := service.NewLikeService(likeRepo, postRepo, commentRepo, txRunner, publisher)
	categoryService := service.NewCategoryService(categoryRepo)

	// Handlers
	routerCfg := RouterConfig{
		AuthHandler:     handler.NewAuthHandler(userService, authService),
		UserHandler:     handler.NewUserHandler(userService),
		PostHandler:     handler.NewPostHandler(postService, userService),
		CommentHandler:  handler.NewCommentHandler(commentService, userService),
		LikeHandler:     handler.NewLikeHandler(likeService),
		CategoryHandler: handler.NewCategoryHandler(categoryService, userService),
		JWTSecret:       cfg.JWTSecret,
	}

	mediaService, err := service.NewMediaService(ctx, cfg)
	if err != nil {
		log.Printf("[Server] Media uploads disabled: %v", err)
	} else {
		routerCfg.MediaHandler = handler.NewMediaHandler(mediaService)
	}

	// Engagement workers
	manager := worker.NewManager(consumer, worker.NewHandler(viewCache, postRepo), worker.DefaultManagerConfig())
	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}
	defer manager.Stop()

	router := NewRouter(routerCfg)

	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] Listening on :%s", cfg.ServerPort)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Printf("[Server] Received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
