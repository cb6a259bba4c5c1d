package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-manager/internal/models"
)

// Location represents a geographical location with latitude and longitude coordinates.
type Location struct {
	Name string
	Lat  float64
	Lon  float64
}

// Depots trips run between
var cities = []Location{
	{Name: "London", Lat: 51.5074, Lon: -0.1278},
	{Name: "Cardiff", Lat: 51.4816, Lon: -3.1791},
	{Name: "Birmingham", Lat: 52.4862, Lon: -1.8904},
	{Name: "Manchester", Lat: 53.4808, Lon: -2.2426},
	{Name: "Leeds", Lat: 53.8008, Lon: -1.5491},
	{Name: "Bristol", Lat: 51.4545, Lon: -2.5879},
	{Name: "Glasgow", Lat: 55.8642, Lon: -4.2518},
	{Name: "Edinburgh", Lat: 55.9533, Lon: -3.1883},
	{Name: "Paris", Lat: 48.8566, Lon: 2.3522},
	{Name: "Brussels", Lat: 50.8503, Lon: 4.3517},
	{Name: "Amsterdam", Lat: 52.3676, Lon: 4.9041},
}

const avgSpeedKmh = 65.0

func haversineKm(a, b Location) float64 {
	R := 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return R * c
}

// planTrip picks two distinct cities and estimates the road trip between them.
func planTrip(rng *rand.Rand, date time.Time) tripRequest {
	i := rng.Intn(len(cities))
	j := rng.Intn(len(cities) - 1)
	if j >= i {
		j++
	}
	start, end := cities[i], cities[j]
	// road distance taken as 1.25x great-circle
	distance := math.Round(haversineKm(start, end)*1.25*10) / 10
	return tripRequest{
		TripDate:      date,
		StartLocation: start.Name,
		EndLocation:   end.Name,
		Distance:      distance,
		EstimatedTime: math.Round(distance/avgSpeedKmh*100) / 100,
	}
}

type tripRequest struct {
	TripDate      time.Time `json:"tripDate"`
	StartLocation string    `json:"startLocation"`
	EndLocation   string    `json:"endLocation"`
	Distance      float64   `json:"distance"`
	EstimatedTime float64   `json:"estimatedTime"`
}

// Only the fields the simulator reads back from the API.
type entityRef struct {
	ID string `json:"id"`
}

type vehicleRef struct {
	ID                string `json:"id"`
	Status            bool   `json:"status"`
	MaintenanceStatus string `json:"maintenanceStatus"`
	TotalDistance     int    `json:"totalDistance"`
}

// APIError is returned for any non-2xx response.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Client talks to the fleet API with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, in, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Login signs in as the simulator's fleet manager and keeps the token for
// later calls. The account must already exist (see ADMIN_EMAIL on the server).
func (c *Client) Login(ctx context.Context, email, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.post(ctx, "/auth/login", map[string]string{"email": email, "password": password}, &resp); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.token = resp.Token
	return nil
}

func pick[T any](rng *rand.Rand, values []T) T {
	return values[rng.Intn(len(values))]
}

func createVehicle(ctx context.Context, c *Client, rng *rand.Rand, n int) (string, error) {
	vtype := pick(rng, models.VehicleTypeValues())
	modelNames := map[models.VehicleType][]string{
		models.VehicleTruck: {"Actros", "FH16", "TGX"},
		models.VehicleVan:   {"Transit", "Sprinter", "e-Vito"},
		models.VehicleCar:   {"Octavia", "Model 3", "Prius"},
	}
	vehicle, err := models.NewVehicle(models.Vehicle{
		Type:               vtype,
		Model:              pick(rng, modelNames[vtype]),
		RegistrationNumber: fmt.Sprintf("SIM-%04d-%03d", n, rng.Intn(1000)),
		FuelType:           pick(rng, models.FuelTypeValues()),
		Mileage:            8 + rng.Intn(12),
		TotalDistance:      rng.Intn(9000),
		Status:             true,
		MaintenanceStatus:  models.MaintenanceCompleted,
	})
	if err != nil {
		return "", err
	}

	var created entityRef
	if err := c.post(ctx, "/vehicles", vehicle, &created); err != nil {
		return "", fmt.Errorf("failed to create vehicle: %w", err)
	}

	log.WithFields(log.Fields{
		"vehicle_id":   created.ID,
		"type":         vtype,
		"registration": vehicle.RegistrationNumber,
	}).Info("Created vehicle")
	return created.ID, nil
}

func createDriver(ctx context.Context, c *Client, rng *rand.Rand, n int) (string, error) {
	driver, err := models.NewDriver(
		fmt.Sprintf("Driver %d", n),
		fmt.Sprintf("driver%d.%d@sim.example.com", n, rng.Intn(1_000_000)),
		fmt.Sprintf("555-%04d", n),
		models.DriverProfile{
			Experience:        pick(rng, models.ExperienceValues()),
			License:           fmt.Sprintf("DL-%06d", rng.Intn(1_000_000)),
			GeoPreference:     pick(rng, models.GeoPreferenceValues()),
			VehiclePreference: pick(rng, models.VehicleTypeValues()),
			Available:         true,
		},
	)
	if err != nil {
		return "", err
	}

	var created entityRef
	if err := c.post(ctx, "/users", driver, &created); err != nil {
		return "", fmt.Errorf("failed to create driver: %w", err)
	}
	log.WithFields(log.Fields{"driver_id": created.ID, "name": driver.Name}).Info("Created driver")
	return created.ID, nil
}

// Simulator runs trips through the API one after another.
type Simulator struct {
	client     *Client
	rng        *rand.Rand
	vehicleIDs []string
	now        func() time.Time
}

// RunTrip schedules one trip, assigns the most experienced available driver
// and an operational vehicle, drives it and completes it. Maintenance opened
// by the completion is carried through to the end.
func (s *Simulator) RunTrip(ctx context.Context) (*models.Completion, error) {
	var drivers []entityRef
	if err := s.client.get(ctx, "/drivers?available=true", &drivers); err != nil {
		return nil, err
	}
	if len(drivers) == 0 {
		return nil, errors.New("no available drivers")
	}
	var vehicles []vehicleRef
	if err := s.client.get(ctx, "/vehicles?operational=true", &vehicles); err != nil {
		return nil, err
	}
	if len(vehicles) == 0 {
		return nil, errors.New("no operational vehicles")
	}
	vehicle := pick(s.rng, vehicles)

	var trip entityRef
	if err := s.client.post(ctx, "/trips", planTrip(s.rng, s.now()), &trip); err != nil {
		return nil, err
	}
	entry := log.WithFields(log.Fields{"trip_id": trip.ID, "driver_id": drivers[0].ID, "vehicle_id": vehicle.ID})

	assign := map[string]string{"driverId": drivers[0].ID, "vehicleId": vehicle.ID}
	if err := s.client.post(ctx, "/trips/"+trip.ID+"/assign", assign, nil); err != nil {
		return nil, err
	}
	entry.Info("Trip assigned")
	if err := s.client.post(ctx, "/trips/"+trip.ID+"/start", nil, nil); err != nil {
		return nil, err
	}
	entry.Info("Trip started")

	var completion models.Completion
	if err := s.client.post(ctx, "/trips/"+trip.ID+"/complete", nil, &completion); err != nil {
		return nil, err
	}
	entry.WithFields(log.Fields{
		"distance_added": completion.DistanceAdded,
		"total_distance": completion.TotalDistance,
	}).Info("Trip completed")

	if completion.MaintenanceScheduled {
		if err := s.service(ctx, completion.VehicleID); err != nil {
			return &completion, err
		}
	}
	return &completion, nil
}

// service walks a vehicle's open maintenance cycle through to completed.
func (s *Simulator) service(ctx context.Context, vehicleID string) error {
	for {
		var v vehicleRef
		if err := s.client.post(ctx, "/vehicles/"+vehicleID+"/maintenance/advance", nil, &v); err != nil {
			return err
		}
		log.WithFields(log.Fields{"vehicle_id": vehicleID, "maintenance": v.MaintenanceStatus}).Info("Maintenance advanced")
		if v.MaintenanceStatus == string(models.MaintenanceCompleted) {
			return nil
		}
	}
}

// Setup creates the fleet: vehicles, drivers, and one maintenance engineer
// responsible for every vehicle.
func (s *Simulator) Setup(ctx context.Context, fleetSize int) error {
	for i := 1; i <= fleetSize; i++ {
		id, err := createVehicle(ctx, s.client, s.rng, i)
		if err != nil {
			log.WithError(err).Error("Failed to create vehicle")
			continue
		}
		s.vehicleIDs = append(s.vehicleIDs, id)
		if _, err := createDriver(ctx, s.client, s.rng, i); err != nil {
			log.WithError(err).Error("Failed to create driver")
		}
	}
	if len(s.vehicleIDs) == 0 {
		return errors.New("no vehicles created")
	}

	staff, err := models.NewMaintenance("Sim Engineer", fmt.Sprintf("engineer.%d@sim.example.com", s.rng.Intn(1_000_000)), "555-9999", 1)
	if err != nil {
		return err
	}
	var created entityRef
	if err := s.client.post(ctx, "/users", staff, &created); err != nil {
		return fmt.Errorf("failed to create maintenance staff: %w", err)
	}
	for _, id := range s.vehicleIDs {
		if err := s.client.post(ctx, "/maintenance/"+created.ID+"/vehicles", map[string]string{"vehicleId": id}, nil); err != nil {
			return err
		}
	}
	log.WithFields(log.Fields{"staff_id": created.ID, "vehicles": len(s.vehicleIDs)}).Info("Assigned vehicles to maintenance")
	return nil
}

// Run completes a trip every interval until ctx is done.
func (s *Simulator) Run(ctx context.Context, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if _, err := s.RunTrip(ctx); err != nil && ctx.Err() == nil {
				log.WithError(err).Warn("Trip failed")
			}
		}
	}
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return def
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	fleetSize := envInt("FLEET_SIZE", 5)
	apiURL := envString("API_BASE_URL", "http://localhost:8080/api")
	interval := 2 * time.Second
	if n := envInt("SIM_TICK_SECONDS", 2); n >= 1 {
		interval = time.Duration(n) * time.Second
	}

	log.WithFields(log.Fields{
		"fleet_size": fleetSize,
		"api_url":    apiURL,
		"interval":   interval,
	}).Info("Starting fleet simulation")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := NewClient(apiURL, os.Getenv("SIM_AUTH_TOKEN"))
	if client.token == "" {
		email := envString("SIM_EMAIL", "simulator@fleet.example.com")
		password := envString("SIM_PASSWORD", "simulator-password")
		if err := client.Login(ctx, email, password); err != nil {
			log.WithError(err).Fatal("Failed to authenticate")
		}
	}

	sim := &Simulator{
		client: client,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
	if err := sim.Setup(ctx, fleetSize); err != nil {
		log.WithError(err).Fatal("Fleet setup failed")
	}

	log.Info("Trip simulation started")
	sim.Run(ctx, interval)
	log.Info("Simulation stopped")
}
