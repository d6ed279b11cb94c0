package shopify

import "context"

// Paginator 商品分页迭代器
// 惰性拉取，每次 Next 取一页；遇到空页即终止 (唯一终止条件)
// 注意：没有页数上限，若源站永不返回空页会无限迭代，由调用方的任务超时兜底
// 迭代器不可重置，重新抓取需新建实例 (从第 1 页重新开始)
type Paginator struct {
	client     *Client
	storeURL   string
	collection string // 为空时抓取全店商品
	page       int
	done       bool
}

// NewPaginator 创建分页迭代器
// collectionHandle 为空时走 /products.json，否则走集合端点
func NewPaginator(client *Client, storeURL, collectionHandle string) *Paginator {
	return &Paginator{
		client:     client,
		storeURL:   storeURL,
		collection: collectionHandle,
		page:       1,
	}
}

// Next 拉取下一页商品
// 返回空切片表示已到末页，之后的调用不再发请求
func (p *Paginator) Next(ctx context.Context) ([]RawProduct, error) {
	if p.done {
		return nil, nil
	}

	products, err := p.client.GetProductsPage(ctx, p.storeURL, p.page, p.collection)
	if err != nil {
		p.done = true
		return nil, err
	}

	if len(products) == 0 {
		p.done = true
		return nil, nil
	}

	p.page++
	return products, nil
}

// Page 当前待抓取的页码 (从 1 开始)
func (p *Paginator) Page() int { return p.page }
