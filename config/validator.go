package config

// Validator 配置校验接口（各模块 Config 实现）
type Validator interface {
	Validate() error
}

// ValidateAll 依次校验，返回第一个错误
func ValidateAll(validators ...Validator) error {
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
