// Command portal_smoke drives the villager and grievance workflows against a
// running API through the portal client and reports each step.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rushibamb/dig-village-sub001/internal/dto"
	"github.com/rushibamb/dig-village-sub001/internal/models"
	"github.com/rushibamb/dig-village-sub001/internal/portal"
	"github.com/rushibamb/dig-village-sub001/internal/service"
)

var errSkipped = errors.New("skipped")

type step struct {
	Name     string
	Critical bool
	Run      func(ctx context.Context) error
}

type result struct {
	Step     step
	Err      error
	Duration time.Duration
}

type session struct {
	admin   *portal.Client
	citizen *portal.Client
	otp     string

	mobile     string
	villagerID string
	flow       *portal.VillagerFlow
	board      *portal.GrievanceBoard
	grievance  string
}

func main() {
	var (
		base      string
		secret    string
		issuer    string
		otp       string
		timeout   time.Duration
		verbosity bool
	)
	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "API base URL including prefix")
	flag.StringVar(&secret, "jwt-secret", "dev_secret", "HS256 secret used to mint admin and citizen tokens")
	flag.StringVar(&issuer, "jwt-issuer", "", "Token issuer, when the API checks one")
	flag.StringVar(&otp, "otp", "", "Edit code delivered for the registered number; the edit steps are skipped when empty")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.BoolVar(&verbosity, "v", false, "Log client requests")
	flag.Parse()

	logr := zap.NewNop()
	if verbosity {
		logr, _ = zap.NewDevelopment()
	}

	auth := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: secret, Issuer: issuer})
	adminToken, _, err := auth.IssueAccessToken(uuid.NewString(), models.RoleAdmin, "smoke-admin@village.local", "Smoke Admin")
	if err != nil {
		log.Fatalf("failed to mint admin token: %v", err)
	}
	citizenToken, _, err := auth.IssueAccessToken(uuid.NewString(), models.RoleCitizen, "smoke-citizen@village.local", "Smoke Citizen")
	if err != nil {
		log.Fatalf("failed to mint citizen token: %v", err)
	}

	httpClient := &http.Client{Timeout: timeout}
	ctx, cancel := context.WithTimeout(context.Background(), 5*timeout)
	defer cancel()

	s := &session{
		admin:   portal.NewClient(base, portal.WithBearerToken(adminToken), portal.WithClientLogger(logr), portal.WithHTTPClient(httpClient)),
		citizen: portal.NewClient(base, portal.WithBearerToken(citizenToken), portal.WithClientLogger(logr), portal.WithHTTPClient(httpClient)),
		otp:     otp,
		mobile:  fmt.Sprintf("9%09d", time.Now().UnixNano()%1_000_000_000),
	}
	s.flow = portal.NewVillagerFlow(ctx, s.citizen, portal.WithIDProofUploader(s.citizen), portal.WithFlowLogger(logr))
	defer s.flow.Close()
	s.board = portal.NewGrievanceBoard(ctx, s.admin, s.admin, s.admin, portal.WithBoardLogger(logr))
	defer s.board.Close()

	steps := []step{
		{Name: "register villager", Critical: true, Run: s.register},
		{Name: "approve registration", Critical: true, Run: s.approve},
		{Name: "request edit code", Critical: true, Run: s.requestOTP},
		{Name: "verify code and submit edit", Critical: false, Run: s.edit},
		{Name: "submit grievance", Critical: true, Run: s.submitGrievance},
		{Name: "approve and assign grievance", Critical: true, Run: s.assign},
		{Name: "resolve grievance with photos", Critical: true, Run: s.resolve},
	}

	var results []result
	breaking := 0
	for _, st := range steps {
		start := time.Now()
		err := st.Run(ctx)
		results = append(results, result{Step: st, Err: err, Duration: time.Since(start)})
		if err != nil && !errors.Is(err, errSkipped) && st.Critical {
			breaking++
			break
		}
	}

	printReport(results)
	fmt.Printf("Breaking failures: %d\n", breaking)
	if breaking > 0 {
		os.Exit(1)
	}
}

func (s *session) register(ctx context.Context) error {
	if err := s.flow.StartAdd(); err != nil {
		return err
	}
	if _, err := s.flow.IDProof.Upload(ctx, "id-proof.png", samplePhoto(640, 400)); err != nil {
		return fmt.Errorf("upload id proof: %w", err)
	}
	dob, _ := models.ParseDate("1990-05-14")
	if err := s.flow.SetForm(dto.VillagerRequest{
		FullName:     "Smoke Test Villager",
		MobileNumber: s.mobile,
		Gender:       models.GenderFemale,
		DateOfBirth:  dob,
		AadharNumber: fmt.Sprintf("%012d", time.Now().UnixNano()%1_000_000_000_000),
		Address:      "Ward 1, Panchayat Road",
	}); err != nil {
		return err
	}
	created, err := s.flow.SubmitAdd(ctx)
	if err != nil {
		return err
	}
	if created.Status != models.VillagerStatusPending || created.RequestType != models.RequestTypeNewRegistration {
		return fmt.Errorf("unexpected state %s / %s", created.Status, created.RequestType)
	}
	s.villagerID = created.ID
	return nil
}

func (s *session) approve(ctx context.Context) error {
	pending, err := s.admin.ListVillagers(ctx, dto.VillagerQuery{Status: []models.VillagerStatus{models.VillagerStatusPending}, Search: s.mobile})
	if err != nil {
		return err
	}
	found := false
	for _, v := range pending {
		found = found || v.ID == s.villagerID
	}
	if !found {
		return fmt.Errorf("registration %s not in the pending list", s.villagerID)
	}
	v, err := s.admin.ReviewVillager(ctx, s.villagerID, models.VillagerStatusApproved, "smoke test")
	if err != nil {
		return err
	}
	if v.Status != models.VillagerStatusApproved {
		return fmt.Errorf("status is %s after approval", v.Status)
	}
	return nil
}

func (s *session) requestOTP(ctx context.Context) error {
	if err := s.flow.StartEdit(); err != nil {
		return err
	}
	_, err := s.flow.RequestOTP(ctx, s.mobile)
	return err
}

func (s *session) edit(ctx context.Context) error {
	if s.otp == "" {
		return errSkipped
	}
	if _, err := s.flow.VerifyOTP(ctx, s.otp); err != nil {
		return err
	}
	form := s.flow.Form()
	form.Address = "Ward 2, Temple Street"
	if err := s.flow.SetForm(form); err != nil {
		return err
	}
	updated, err := s.flow.SubmitEdit(ctx)
	if err != nil {
		return err
	}
	if updated.RequestType != models.RequestTypeEditRequest {
		return fmt.Errorf("request type is %s after edit", updated.RequestType)
	}
	return nil
}

func (s *session) submitGrievance(ctx context.Context) error {
	g, err := s.citizen.SubmitGrievance(ctx, dto.CreateGrievanceRequest{
		Title:       "Smoke test: broken handpump",
		Description: "Handpump near the school stopped working",
		Category:    "Water",
	})
	if err != nil {
		return err
	}
	s.grievance = g.ID
	return s.board.Load(ctx)
}

func (s *session) assign(ctx context.Context) error {
	if err := s.board.Approve(ctx, s.grievance, "smoke test"); err != nil {
		return err
	}
	workers := s.board.Workers()
	if len(workers) > 0 {
		if err := s.board.AssignWorker(ctx, s.grievance, &workers[0].ID); err != nil {
			return err
		}
	}
	return s.board.SetProgress(ctx, s.grievance, models.ProgressInProgress)
}

func (s *session) resolve(ctx context.Context) error {
	if err := s.board.Open(s.grievance); err != nil {
		return err
	}
	if err := s.board.MarkResolved(ctx); !portal.IsLocal(err) {
		return fmt.Errorf("resolving without photos was not rejected locally: %v", err)
	}
	s.board.Notifications()
	for i := 0; i < 2; i++ {
		if _, err := s.board.AddResolutionPhoto(ctx, fmt.Sprintf("resolution-%d.png", i+1), samplePhoto(1600, 1200)); err != nil {
			return err
		}
	}
	if err := s.board.MarkResolved(ctx); err != nil {
		return err
	}
	for _, g := range s.board.Grievances() {
		if g.ID != s.grievance {
			continue
		}
		if g.ProgressStatus != models.ProgressResolved || len(g.ResolutionPhotos) != 2 {
			return fmt.Errorf("grievance is %s with %d photos", g.ProgressStatus, len(g.ResolutionPhotos))
		}
		return nil
	}
	return fmt.Errorf("grievance %s not on the board after resolving", s.grievance)
}

func samplePhoto(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 160, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

func printReport(results []result) {
	fmt.Println("Portal Smoke Report")
	fmt.Println("===================")
	for _, res := range results {
		status := "OK"
		switch {
		case errors.Is(res.Err, errSkipped):
			status = "SKIP"
		case res.Err != nil:
			status = "FAIL"
		}
		fmt.Printf("[%s] %s (%s)\n", status, res.Step.Name, res.Duration.Round(time.Millisecond))
		if res.Err != nil && !errors.Is(res.Err, errSkipped) {
			fmt.Printf("  Error: %v | Critical: %t\n", res.Err, res.Step.Critical)
		}
	}
}
