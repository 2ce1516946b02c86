package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Result 记录单次请求的 HTTP 结果，便于聚合统计。
type Result struct {
	Status int
	Body   string
	Err    error
}

func main() {
	baseURL := flag.String("base", "http://localhost:8080", "server base url")
	productID := flag.Int("product", 1, "product id")
	buyerID := flag.Int("buyer", 2, "buyer account id")
	sellerID := flag.Int("seller", 1, "seller account id")
	amount := flag.Int64("amount", 0, "proposed price in cents; 0 = ask floor first")

	// 限流测试参数：同一买家高频出价
	nOffers := flag.Int("offers", 50, "offers submitted by the same buyer")
	concurrency := flag.Int("c", 50, "max concurrency")

	// CAS 测试参数：同一条 pending 出价被并发接受
	nAccepts := flag.Int("accepts", 20, "concurrent accepts on one pending offer")
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Second}

	// 出价金额缺省时先查询当前买家的报价下限。
	if *amount <= 0 {
		floor, err := getFloor(client, *baseURL, *productID, *buyerID)
		if err != nil {
			panic(fmt.Sprintf("floor quote failed: %v", err))
		}
		*amount = floor
		fmt.Println("floor quote:", floor)
	}

	// 1) 限流测试：同一买家并发出价，超出窗口配额的请求应得到 429
	fmt.Printf("start rate limit test: product=%d buyer=%d offers=%d concurrency=%d\n",
		*productID, *buyerID, *nOffers, *concurrency)
	results := runOffers(client, *baseURL, *productID, *buyerID, *amount, *nOffers, *concurrency)
	printSummary("rate_limit", results)

	// 2) CAS 测试：提交一条有效出价，再并发接受，期望恰好一个 200
	fmt.Printf("\nstart accept race test: %d concurrent accepts\n", *nAccepts)
	negotiationID, err := submitOne(client, *baseURL, *productID, *buyerID, *amount)
	if err != nil {
		panic(fmt.Sprintf("submit offer failed: %v", err))
	}
	fmt.Println("pending negotiation id:", negotiationID)

	results2 := runAccepts(client, *baseURL, negotiationID, *sellerID, *nAccepts)
	printSummary("accept_race", results2)
}

func runOffers(client *http.Client, baseURL string, productID, buyerID int, amount int64, total, concurrency int) []Result {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Result, total)

	for i := 0; i < total; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = offerOnce(client, baseURL, productID, buyerID, amount)
		}(i)
	}

	wg.Wait()
	return results
}

func runAccepts(client *http.Client, baseURL string, negotiationID uint, sellerID, total int) []Result {
	var wg sync.WaitGroup
	results := make([]Result, total)

	for i := 0; i < total; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = transitionOnce(client, baseURL, negotiationID, sellerID, "accepted")
		}(i)
	}

	wg.Wait()
	return results
}

func offerOnce(client *http.Client, baseURL string, productID, buyerID int, amount int64) Result {
	body := map[string]any{
		"product_id":     productID,
		"proposed_price": amount,
	}
	return doJSON(client, http.MethodPost, fmt.Sprintf("%s/api/negotiations", baseURL), body, buyerID)
}

func transitionOnce(client *http.Client, baseURL string, negotiationID uint, sellerID int, status string) Result {
	body := map[string]any{"status": status}
	url := fmt.Sprintf("%s/api/negotiations/%d/status", baseURL, negotiationID)
	return doJSON(client, http.MethodPut, url, body, sellerID)
}

// submitOne 提交一条出价并返回服务端分配的议价 ID。
func submitOne(client *http.Client, baseURL string, productID, buyerID int, amount int64) (uint, error) {
	res := offerOnce(client, baseURL, productID, buyerID, amount)
	if res.Err != nil {
		return 0, res.Err
	}
	if res.Status != http.StatusCreated {
		return 0, fmt.Errorf("status=%d body=%s", res.Status, res.Body)
	}

	var out struct {
		Code int `json:"code"`
		Data struct {
			ID uint `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(res.Body), &out); err != nil {
		return 0, err
	}
	if out.Data.ID == 0 {
		return 0, fmt.Errorf("missing negotiation id in response: %s", res.Body)
	}
	return out.Data.ID, nil
}

// getFloor 查询买家对该商品的最低可出价。
func getFloor(client *http.Client, baseURL string, productID, buyerID int) (int64, error) {
	url := fmt.Sprintf("%s/api/negotiations/floor/%d", baseURL, productID)
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("X-User-ID", fmt.Sprintf("%d", buyerID))

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}

	var out struct {
		Code int `json:"code"`
		Data struct {
			MinAllowed int64 `json:"min_allowed"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return 0, err
	}
	return out.Data.MinAllowed, nil
}

func doJSON(client *http.Client, method, url string, body any, userID int) Result {
	b, _ := json.Marshal(body)
	req, _ := http.NewRequest(method, url, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", fmt.Sprintf("%d", userID))

	resp, err := client.Do(req)
	if err != nil {
		return Result{Err: err}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	return Result{Status: resp.StatusCode, Body: string(respBody)}
}

// printSummary 聚合输出不同状态码分布。
func printSummary(name string, results []Result) {
	count := map[int]int{}
	errCount := 0
	for _, r := range results {
		if r.Err != nil {
			errCount++
			continue
		}
		count[r.Status]++
	}
	fmt.Printf("[%s] http status summary:\n", name)
	for _, code := range []int{200, 201, 400, 403, 404, 429, 500} {
		if count[code] > 0 {
			fmt.Printf("  %d -> %d\n", code, count[code])
		}
	}
	if errCount > 0 {
		fmt.Printf("  errors -> %d\n", errCount)
	}
}
