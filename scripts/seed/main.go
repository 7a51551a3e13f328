// Command seed populates a running API instance with a demo account,
// courses, tasks and availability, then triggers a plan generation.
// Useful for local development and manual testing of the scheduler.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

type client struct {
	base  string
	token string
	http  *http.Client
}

func main() {
	var (
		base    string
		email   string
		pass    string
		timeout time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "API base URL")
	flag.StringVar(&email, "email", "demo@studyflow.local", "Demo account email")
	flag.StringVar(&pass, "password", "demo-password", "Demo account password")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	c := &client{base: base, http: &http.Client{Timeout: timeout}}

	if err := c.register(email, pass); err != nil {
		log.Printf("register skipped: %v", err)
	}
	if err := c.login(email, pass); err != nil {
		log.Fatalf("login failed: %v", err)
	}

	courseID, err := c.createCourse("Algorithms", "Graduate algorithms course")
	if err != nil {
		log.Fatalf("create course: %v", err)
	}

	due := time.Now().UTC().AddDate(0, 0, 10).Truncate(time.Hour)
	tasks := []map[string]interface{}{
		{"courseId": courseID, "title": "Problem set 3", "dueAt": due, "estimatedMinutes": 240, "priority": "high"},
		{"courseId": courseID, "title": "Read chapter 7", "dueAt": due.AddDate(0, 0, 2), "estimatedMinutes": 90, "priority": "medium"},
		{"courseId": courseID, "title": "Exam prep", "dueAt": due.AddDate(0, 0, 4), "estimatedMinutes": 360, "priority": "urgent", "difficulty": "hard"},
	}
	for _, t := range tasks {
		if err := c.post("/tasks", t, nil); err != nil {
			log.Fatalf("create task %q: %v", t["title"], err)
		}
	}

	for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday"} {
		rule := map[string]interface{}{"dayOfWeek": day, "startTime": "18:00", "endTime": "21:00"}
		if err := c.post("/availability/rules", rule, nil); err != nil {
			log.Fatalf("create rule %s: %v", day, err)
		}
	}

	var run map[string]interface{}
	if err := c.post("/schedule/generate", map[string]interface{}{}, &run); err != nil {
		log.Fatalf("generate: %v", err)
	}

	out, _ := json.MarshalIndent(run, "", "  ")
	fmt.Printf("plan generated:\n%s\n", out)
}

func (c *client) register(email, pass string) error {
	payload := map[string]interface{}{
		"email":     email,
		"password":  pass,
		"full_name": "Demo Student",
		"timezone":  "UTC",
	}
	return c.post("/auth/register", payload, nil)
}

func (c *client) login(email, pass string) error {
	var result struct {
		AccessToken string `json:"access_token"`
	}
	payload := map[string]interface{}{"email": email, "password": pass}
	if err := c.post("/auth/login", payload, &result); err != nil {
		return err
	}
	if result.AccessToken == "" {
		return fmt.Errorf("no access token in login response")
	}
	c.token = result.AccessToken
	return nil
}

func (c *client) createCourse(title, description string) (string, error) {
	var result struct {
		ID string `json:"id"`
	}
	payload := map[string]interface{}{"title": title, "description": description}
	if err := c.post("/courses", payload, &result); err != nil {
		return "", err
	}
	return result.ID, nil
}

func (c *client) post(path string, payload interface{}, dest interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s %s: status %d: %s", http.MethodPost, path, resp.StatusCode, raw)
	}
	if dest == nil {
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return err
	}
	return json.Unmarshal(envelope.Data, dest)
}
