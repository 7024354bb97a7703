package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"GeoDrop-App/internal/config"
	domainRepo "GeoDrop-App/internal/domain/repository"
	"GeoDrop-App/internal/handler"
	"GeoDrop-App/internal/infrastructure/database"
	"GeoDrop-App/internal/infrastructure/firestore"
	"GeoDrop-App/internal/infrastructure/maps"
	"GeoDrop-App/internal/infrastructure/mapsurface"
	"GeoDrop-App/internal/repository"
	"GeoDrop-App/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mapsProvider, err := maps.NewGoogleMapsOptionsProvider(cfg.GoogleMapsAPIKey, cfg.GoogleMapsMapID)
	if err != nil {
		log.Fatalf("Google Maps設定の初期化に失敗: %v", err)
	}
	if !mapsProvider.RichMarkers() {
		log.Println("⚠️ GOOGLE_MAPS_MAP_ID が未設定のため、シンプルなアイコンマーカーで表示します")
	}

	log.Println("🔄 Supabaseクライアントを初期化しています...")
	supabaseClient, err := database.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	if err != nil {
		log.Fatalf("Supabaseクライアント初期化失敗: %v", err)
	}
	if err := supabaseClient.HealthCheck(); err != nil {
		log.Printf("⚠️ Supabaseヘルスチェック失敗（取得は定期的に再試行されます）: %v", err)
	} else {
		log.Println("✅ Supabase connection successful!")
	}

	var videosRepo domainRepo.VideosRepository
	if cfg.VideosEnabled() {
		pgClient, err := database.NewPostgreSQLClient(ctx, cfg.SupabaseURL, cfg.SupabaseDBPassword)
		if err != nil {
			log.Printf("⚠️ PostgreSQLに接続できないため、動画は表示されません: %v", err)
		} else {
			defer pgClient.Close()
			videosRepo = repository.NewPostgresVideosRepository(pgClient, cfg.UserID)
		}
	} else {
		log.Println("⚠️ SUPABASE_DB_PASSWORD が未設定のため、動画は表示されません")
	}

	var profileRepo domainRepo.ProfileRepository
	if cfg.ProfileEnabled() {
		fsClient, err := firestore.NewFirestoreClient(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentialsFile)
		if err != nil {
			log.Printf("⚠️ Firestoreに接続できないため、プロフィールは匿名になります: %v", err)
		} else {
			defer fsClient.Close()
			profileRepo = repository.NewFirestoreProfileRepository(fsClient.GetClient())
		}
	}

	surface := mapsurface.NewWebSocketSurface(mapsurface.Options{
		Capabilities:   mapsProvider.Capabilities(),
		AllowedOrigins: cfg.AllowedOrigins,
	})
	defer surface.Close()

	session, err := usecase.NewMapSessionUseCase(usecase.SessionDeps{
		Surface:            surface,
		Entities:           repository.NewSupabaseEntitiesRepository(supabaseClient),
		Videos:             videosRepo,
		Profiles:           profileRepo,
		MapOptions:         mapsProvider,
		OnSelect:           surface.SelectEntity,
		UserID:             cfg.UserID,
		PollInterval:       cfg.PollInterval,
		NearbyRadiusMeters: cfg.NearbyRadiusMeters,
	})
	if err != nil {
		log.Fatalf("マップセッションの初期化に失敗: %v", err)
	}

	sessionDone := make(chan error, 1)
	go func() { sessionDone <- session.Run(ctx) }()

	router := gin.Default()
	handler.NewMapHandler(session, surface).RegisterRoutes(router)
	handler.NewVideosHandler(videosRepo).RegisterRoutes(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("🗺️ GeoDrop-App server starting on :%s...", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("サーバーの起動に失敗: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🔄 シャットダウンしています...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	surface.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ サーバーのシャットダウンに失敗: %v", err)
	}
	if err := <-sessionDone; err != nil {
		log.Printf("⚠️ マップセッションの終了に失敗: %v", err)
	}
	log.Println("✅ 終了しました")
}
